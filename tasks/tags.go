package tasks

import (
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/redis"
)

const TagsDB redis.DB = 0

type TaskStatus string

const (
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted
}

// TagTask is the record of one document sent to the tagger.
type TagTask struct {
	TaskID         string     `json:"task_id"`
	Profile        string     `json:"profile"`
	InputFileKey   string     `json:"input_file_key"`
	ResultsFileKey string     `json:"results_file_key"`
	UserCanceled   bool       `json:"user_canceled"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type TagTasks struct {
	client redis.Client
}

func (tasks TagTasks) Get(redisKey string) (*TagTask, error) {
	var task TagTask
	if err := tasks.client.GetDoc(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies updateFunc to the stored task under the task lock.
func (tasks TagTasks) Update(redisKey string, updateFunc func(task *TagTask)) error {
	var task TagTask
	return tasks.client.UpdateDoc(redisKey, &task, func() error {
		updateFunc(&task)
		return nil
	})
}
