package worker

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/tasks"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type pipelineMock struct {
	ppln    pipeline.Pipeline
	config  pipelineMockConfig
	calls   pipelineCall
	request pipeline.Request
}

type pipelineMockConfig struct {
	fail   bool
	panic  bool
	result string
}

type pipelineCall struct {
	pipeline bool
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
	closed bool
}

type redisMockConfig struct {
	getTagTask            withValue
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getTagTask            bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config      rmqMockConfig
	calls       rmqMockCalls
	closed      bool
	deliveries  chan amqp.Delivery
	replyErrors chan *amqp.Error
	taskErrors  chan *amqp.Error
}

type rmqMockConfig struct {
	reply               failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	reply               bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
	closed bool
}

type s3MockConfig struct {
	getInputText    withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	getInputText    bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {
	mock.closed = true
}

func (mock *rmqMock) close() {
	mock.closed = true
}

func (mock *redisMock) close() {
	mock.closed = true
}

func getPipelineMock(config pipelineMockConfig) *pipelineMock {
	mock := pipelineMock{config: config}
	mock.ppln = func(request pipeline.Request) <-chan string {
		mock.calls.pipeline = true
		mock.request = request
		if mock.config.panic {
			panic("tagger crashed")
		}
		ch := make(chan string, 1)
		if !mock.config.fail {
			ch <- mock.config.result
		}
		close(ch)
		return ch
	}
	return &mock
}

func (mock *redisMock) getTagTask(taskID string) (*tasks.TagTask, error) {
	mock.calls.getTagTask = true
	if mock.config.getTagTask.fail {
		return nil, errors.New("failed to get tagging task")
	}
	switch value := mock.config.getTagTask.returnedValue.(type) {
	case tasks.TagTask:
		return &value, nil
	default:
		return &tasks.TagTask{TaskID: taskID, Profile: "conll2000"}, nil
	}
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update tagging task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update tagging task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update tagging task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update tagging task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update tagging task on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, posLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return mock.deliveries
}

func (mock *rmqMock) getTaskChanErrorsCh() <-chan *amqp.Error {
	return mock.taskErrors
}

func (mock *rmqMock) getReplyChanErrorsCh() <-chan *amqp.Error {
	return mock.replyErrors
}

func (mock *rmqMock) reply(task *Task, message Message) error {
	mock.calls.reply = true
	if mock.config.reply.fail {
		return errors.New("failed to send reply")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) getInputText(task *Task) ([]byte, error) {
	mock.calls.getInputText = true
	if mock.config.getInputText.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	switch value := mock.config.getInputText.returnedValue.(type) {
	case []byte:
		return value, nil
	default:
		return []byte("The dog barked"), nil
	}
}

func (mock *s3Mock) saveResultsFile(task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}
