package worker

import (
	"fmt"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/tasks"
)

type redisTransactions interface {
	getTagTask(taskID string) (*tasks.TagTask, error)
	onTaskStarted(task *Task) error
	onTaskCancelled(task *Task, errorMessages ...string) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) getTagTask(taskID string) (*tasks.TagTask, error) {
	return wrapper.tasksClient.Tags.Get(taskID)
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.tasksClient.Tags.Update(task.taskID, func(tagTask *tasks.TagTask) {
		tagTask.Status = tasks.TaskStatusStarted
		tagTask.Attempts++
		tagTask.StartedAt = getFormattedNow()
		tagTask.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskCancelled(task *Task, errorMessages ...string) error {
	return wrapper.tasksClient.Tags.Update(task.taskID, func(tagTask *tasks.TagTask) {
		tagTask.Status = tasks.TaskStatusCanceled
		tagTask.StartedAt = getFormattedNow()
		tagTask.CompletedAt = getFormattedNow()
		tagTask.Attempts++
		tagTask.ErrorMessages = append(tagTask.ErrorMessages, errorMessages...)
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	return wrapper.tasksClient.Tags.Update(task.taskID, func(tagTask *tasks.TagTask) {
		tagTask.Status = tasks.TaskStatusCompletedFailure
		tagTask.StartedAt = getFormattedNow()
		tagTask.CompletedAt = getFormattedNow()
		tagTask.Attempts++
		tagTask.ErrorMessages = append(
			tagTask.ErrorMessages,
			fmt.Sprintf(
				"Task has exceeded retries. (Attempts: %d, max retries: %d )",
				tagTask.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Tags.Update(task.taskID, func(tagTask *tasks.TagTask) {
		tagTask.Status = tasks.TaskStatusFailed
		tagTask.CompletedAt = getFormattedNow()
		tagTask.ErrorMessages = append(tagTask.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	return wrapper.tasksClient.Tags.Update(task.taskID, func(tagTask *tasks.TagTask) {
		if !tagTask.Status.Complete() {
			tagTask.Status = tasks.TaskStatusCompletedSuccess
		}
		tagTask.CompletedAt = getFormattedNow()
		tagTask.ResultsFileKey = getResultsFileKey(task)
	})
}
