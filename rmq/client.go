package rmq

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
)

type Config struct {
	Host                    string `envconfig:"POS_RMQ_HOST" required:"true"`
	Port                    string `envconfig:"POS_RMQ_PORT" required:"true"`
	Username                string `envconfig:"POS_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"POS_RMQ_PASSWORD" required:"true"`
	Exchange                string `envconfig:"POS_RMQ_EXCHANGE" default:"pos-tagging-exchange"`
	MaxParallelRequestCount int    `envconfig:"POS_RMQ_MAX_PARALLEL_REQUESTS" default:"5"`
	TaskQueue               string `envconfig:"POS_RMQ_TASK_QUEUE" default:"pos-tagging-tasks"`
	ReplyQueue              string `envconfig:"POS_RMQ_REPLY_QUEUE" default:"pos-tagging-replies"`
}

// Client consumes tagging tasks on one connection and publishes replies on
// another. Both connections report closing errors on their channels.
type Client struct {
	Deliveries      <-chan amqp.Delivery
	TaskChanErrors  <-chan *amqp.Error
	ReplyChanErrors <-chan *amqp.Error
	config          Config
	taskConn        *amqp.Connection
	replyConn       *amqp.Connection
	replyChannel    *amqp.Channel
	posLogger       *zerolog.Logger
}

func NewClient() (*Client, error) {
	posLogger := logger.NewLogger("RMQ client")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		posLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	url := getURL(config)
	replyConn, replyChannel, err := setup(url)
	if err != nil {
		return nil, fmt.Errorf("failed reply connection: %w", err)
	}
	taskConn, taskChannel, err := setup(url)
	if err != nil {
		_ = replyConn.Close()
		return nil, fmt.Errorf("failed task connection: %w", err)
	}

	deliveries, err := consume(taskChannel, config)
	if err != nil {
		_ = replyConn.Close()
		_ = taskConn.Close()
		return nil, err
	}
	posLogger.Info().Str("queue", config.TaskQueue).Msg("Consuming tagging tasks")

	return &Client{
		Deliveries:      deliveries,
		TaskChanErrors:  taskChannel.NotifyClose(make(chan *amqp.Error)),
		ReplyChanErrors: replyChannel.NotifyClose(make(chan *amqp.Error)),
		config:          config,
		taskConn:        taskConn,
		replyConn:       replyConn,
		replyChannel:    replyChannel,
		posLogger:       &posLogger,
	}, nil
}

func consume(ch *amqp.Channel, config Config) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare(
		config.TaskQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", config.TaskQueue, err)
	}
	if err = ch.QueueBind(q.Name, q.Name, config.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind %s: %w", q.Name, err)
	}
	if err = ch.Qos(config.MaxParallelRequestCount, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume deliveries: %w", err)
	}
	return deliveries, nil
}

// Reply publishes msg to the reply queue.
func (c *Client) Reply(msg amqp.Publishing) error {
	return c.replyChannel.Publish(
		c.config.Exchange,
		c.config.ReplyQueue,
		false,
		false,
		msg)
}

func (c *Client) Close() {
	_ = c.taskConn.Close()
	_ = c.replyConn.Close()
}

func getURL(config Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
