package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/tasks"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/utils"
)

type Message struct {
	WorkType string `json:"work_type"`
	TaskID   string `json:"task_id"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery  *amqp.Delivery
	tagTask   *tasks.TagTask
	message   *Message
	taskID    string
	posLogger *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	task, err := worker.createTask(delivery)
	rejectLogger := worker.posLogger.With().Str("message_id", delivery.MessageId).Logger()
	if err != nil {
		worker.posLogger.Err(err).
			Str("message_id", delivery.MessageId).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.processTask(task); err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.reply(task, *task.message); err != nil {
		task.posLogger.Err(err).Msg("Got error while sending message to reply queue")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.posLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.posLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(delivery *amqp.Delivery) (*Task, error) {
	var message Message
	err := json.Unmarshal(delivery.Body, &message)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal message, got error %w", err)
	}
	tagTask, err := worker.redis.getTagTask(message.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tagging task for message, got error %w", err)
	}
	taskLogger := worker.posLogger.With().Str("tid", message.TaskID).Logger()
	task := Task{
		delivery:  delivery,
		tagTask:   tagTask,
		taskID:    message.TaskID,
		message:   &message,
		posLogger: &taskLogger,
	}
	return &task, nil
}

func (worker *Worker) processTask(task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(task)
	if err != nil {
		task.posLogger.Err(err).
			Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(task); err != nil {
		task.posLogger.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update task info: %w", err)
	}
	if err = worker.runPipeline(task); err != nil {
		task.posLogger.Err(err).Msg("Got error while running pipeline")
		if err = worker.redis.onTaskFailedWithError(task, err); err != nil {
			return err
		}
		return nil
	}
	task.posLogger.Info().Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(task); err != nil {
		task.posLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

func (worker *Worker) runPipeline(task *Task) (err error) {
	defer utils.RecoverWithError(&err)
	task.posLogger.Info().Msgf("Processing message from RMQ, attempt # %d", task.tagTask.Attempts)
	data, err := worker.s3.getInputText(task)
	if err != nil {
		task.posLogger.Err(err).Caller().Msg("Could not fetch text from s3")
		return fmt.Errorf("failed fetch text from s3: %w", err)
	}
	request := pipeline.Request{
		Tid:     task.taskID,
		Profile: task.tagTask.Profile,
		Text:    string(data),
	}
	result, ok := <-worker.ppln(request)
	if !ok {
		task.posLogger.Error().Msg("Pipeline channel was closed before returning anything")
		return errors.New("pipeline channel was closed before returning anything")
	}
	task.posLogger.Info().Msg("Finished pipeline, saving results to s3")
	if err = worker.s3.saveResultsFile(task, result); err != nil {
		task.posLogger.Err(err).Msg("Got error while trying to save results")
		return err
	}
	return nil
}

func (worker *Worker) shouldPerformTask(task *Task) (bool, error) {
	tagTask := task.tagTask
	taskLogger := task.posLogger

	if tagTask.Status.Complete() {
		taskLogger.Info().Msg("Task is already done. (might indicate issue acking message with RMQ). Sending reply.")
		return false, nil
	}
	if tagTask.UserCanceled {
		taskLogger.Info().Msg("Task was canceled, no need to perform it. Sending reply.")
		err := worker.redis.onTaskCancelled(task)
		return false, err
	}
	if tagTask.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Tagging task has exceeded retries. Sending reply.")
		err := worker.redis.onTaskExceededRetries(task, worker.config.TaskMaxRetries)
		return false, err
	}
	return true, nil
}
