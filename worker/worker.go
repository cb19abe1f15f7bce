package worker

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/rmq"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/s3client"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/tasks"
)

var errDeliveriesClosed = errors.New("deliveries channel closed")

type Config struct {
	TaskMaxRetries int `envconfig:"POS_TASK_MAX_RETRIES" default:"3"`
}

type closer interface {
	close()
}

// dialers open fresh service clients.
type dialers struct {
	tasks   func() (redisTransactions, error)
	storage func() (s3Transactions, error)
	queue   func() (rmqTransactions, error)
}

func serviceDialers() dialers {
	return dialers{
		tasks: func() (redisTransactions, error) {
			client, err := tasks.NewClient()
			if err != nil {
				return nil, err
			}
			return &redisClientWrapper{&client}, nil
		},
		storage: func() (s3Transactions, error) {
			client, err := s3client.New()
			if err != nil {
				return nil, err
			}
			return &s3ClientWrapper{client}, nil
		},
		queue: func() (rmqTransactions, error) {
			client, err := rmq.NewClient()
			if err != nil {
				return nil, err
			}
			return &rmqClientWrapper{client}, nil
		},
	}
}

// Worker consumes tagging tasks from RMQ, runs the pipeline on the text the
// task points to and stores the results in S3.
type Worker struct {
	config    Config
	redis     redisTransactions
	s3        s3Transactions
	rmq       rmqTransactions
	dial      dialers
	posLogger *zerolog.Logger
	ppln      pipeline.Pipeline
}

func New(ppln pipeline.Pipeline) (*Worker, error) {
	posLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		posLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := &Worker{
		config:    config,
		dial:      serviceDialers(),
		posLogger: &posLogger,
		ppln:      ppln,
	}
	for _, connect := range []func() error{worker.connectQueue, worker.connectStorage, worker.connectTasks} {
		if err := connect(); err != nil {
			worker.Close()
			return nil, err
		}
	}
	return worker, nil
}

// StartWorker dispatches deliveries until the task queue is lost for good.
// Each delivery is processed on its own goroutine.
func (worker *Worker) StartWorker() error {
	defer worker.Close()
	for {
		select {
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				go worker.processMessage(&delivery)
				continue
			}
			if err := worker.recoverQueue("deliveries", errDeliveriesClosed); err != nil {
				return err
			}
		case rmqErr := <-worker.rmq.getReplyChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverQueue("reply", rmqErr); err != nil {
				return err
			}
		case rmqErr := <-worker.rmq.getTaskChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverQueue("task", rmqErr); err != nil {
				return err
			}
		}
	}
}

func (worker *Worker) recoverQueue(channel string, cause error) error {
	worker.posLogger.Warn().Err(cause).Str("channel", channel).Msg("Lost RMQ channel, reconnecting")
	if err := worker.connectQueue(); err != nil {
		return fmt.Errorf("rmq %s channel lost (%v) and reconnect failed: %w", channel, cause, err)
	}
	return nil
}

func (worker *Worker) Close() {
	for _, client := range []closer{worker.redis, worker.s3, worker.rmq} {
		if client != nil {
			client.close()
		}
	}
}

// swap replaces the client of one service. The previous client is closed
// only after connect succeeded, so a failed reconnect leaves it in place.
func (worker *Worker) swap(service string, previous closer, connect func() error) error {
	serviceLogger := worker.posLogger.With().Str("service", service).Logger()
	serviceLogger.Info().Msg("Connecting")
	if err := connect(); err != nil {
		serviceLogger.Err(err).Msg("Failed to connect")
		return fmt.Errorf("%s: %w", service, err)
	}
	if previous != nil {
		previous.close()
	}
	serviceLogger.Info().Msg("Connected")
	return nil
}

func (worker *Worker) connectTasks() error {
	return worker.swap("redis", worker.redis, func() error {
		client, err := worker.dial.tasks()
		if err == nil {
			worker.redis = client
		}
		return err
	})
}

func (worker *Worker) connectStorage() error {
	return worker.swap("s3", worker.s3, func() error {
		client, err := worker.dial.storage()
		if err == nil {
			worker.s3 = client
		}
		return err
	})
}

func (worker *Worker) connectQueue() error {
	return worker.swap("rmq", worker.rmq, func() error {
		client, err := worker.dial.queue()
		if err == nil {
			worker.rmq = client
		}
		return err
	})
}
