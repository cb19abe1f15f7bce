package worker

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/rmq"
)

const senderName = "pos-tagger"

type rmqTransactions interface {
	reply(task *Task, message Message) error
	acknowledgeDelivery(delivery *amqp.Delivery) error
	rejectDelivery(delivery *amqp.Delivery, posLogger *zerolog.Logger)
	getDeliveriesCh() <-chan amqp.Delivery
	getTaskChanErrorsCh() <-chan *amqp.Error
	getReplyChanErrorsCh() <-chan *amqp.Error
	close()
}

type rmqClientWrapper struct {
	rmqClient *rmq.Client
}

func (wrapper *rmqClientWrapper) close() {
	wrapper.rmqClient.Close()
}

func (wrapper *rmqClientWrapper) getDeliveriesCh() <-chan amqp.Delivery {
	return wrapper.rmqClient.Deliveries
}

func (wrapper *rmqClientWrapper) getTaskChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.TaskChanErrors
}

func (wrapper *rmqClientWrapper) getReplyChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.ReplyChanErrors
}

func replyPublishing(task *Task, message Message) (amqp.Publishing, error) {
	message.Sender = senderName
	b, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:   task.delivery.ContentType,
		CorrelationId: task.delivery.CorrelationId,
		Body:          b,
	}, nil
}

func (wrapper *rmqClientWrapper) reply(task *Task, message Message) error {
	msg, err := replyPublishing(task, message)
	if err != nil {
		return err
	}
	return wrapper.rmqClient.Reply(msg)
}

func (wrapper *rmqClientWrapper) acknowledgeDelivery(delivery *amqp.Delivery) error {
	return delivery.Ack(false)
}

func (wrapper *rmqClientWrapper) rejectDelivery(delivery *amqp.Delivery, posLogger *zerolog.Logger) {
	if delivery.Redelivered {
		posLogger.Info().Msg("Rejecting delivery as it already has been redelivered")
		if err := delivery.Reject(false); err != nil {
			posLogger.Err(err).Msg("Failed to reject delivery")
		}
		return
	}
	posLogger.Info().Msg("Requeuing delivery as it has not been redelivered yet")
	if err := delivery.Reject(true); err != nil {
		posLogger.Err(err).Msg("Failed to requeue delivery")
	}
}
