package worker

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/logger"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
	"github.com/the-utkarshjain/Part-of-Speech-Tagging/tasks"
)

type mockedClientsConfig struct {
	rmqMockConfig
	redisMockConfig
	s3MockConfig
	pipelineMockConfig
}

type mockedClients struct {
	redis    *redisMock
	rmq      *rmqMock
	s3       *s3Mock
	pipeline *pipelineMock
}

type methodsCalls struct {
	redis    redisMockCalls
	rmq      rmqMockCalls
	s3       s3MockCalls
	pipeline pipelineCall
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) {
	worker, mocks := configureWorker(config)
	worker.processMessage(&amqp.Delivery{
		Body: []byte(`{"work_type": "tagging", "task_id": "task-1"}`),
	})
	calls := methodsCalls{
		redis:    mocks.redis.calls,
		rmq:      mocks.rmq.calls,
		s3:       mocks.s3.calls,
		pipeline: mocks.pipeline.calls,
	}
	if !reflect.DeepEqual(calls, expectedCalls) {
		t.Errorf("Got unexpected called methods set.\nExpected:\n%+v\nGot:\n%+v", expectedCalls, calls)
	}
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	s3 := &s3Mock{config: config.s3MockConfig}
	rmq := &rmqMock{config: config.rmqMockConfig}
	pplnMock := getPipelineMock(config.pipelineMockConfig)

	posLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config:    Config{3},
			redis:     redis,
			s3:        s3,
			rmq:       rmq,
			posLogger: &posLogger,
			ppln:      pplnMock.ppln,
		}, &mockedClients{
			redis:    redis,
			rmq:      rmq,
			s3:       s3,
			pipeline: pplnMock,
		}
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Malformed message", testMalformedMessage)
	t.Run("Failed to get tagging task", testGetTagTaskFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Already complete with failure", testAlreadyCompletedWithFailure)
	t.Run("User cancelled", testUserCancelled)
	t.Run("Failed to update task in onTaskCancelled", testFailedToUpdateOnTaskCancelled)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Failed to update task in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Failed to load text from S3", testFailedToFetchFromS3)
	t.Run("Failed due to pipeline error", testPipelineError)
	t.Run("Failed due to pipeline panic", testPipelinePanic)
	t.Run("Failed to update task in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update task in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to send reply", testFailedReply)
}

func successfulCalls() methodsCalls {
	return methodsCalls{
		redis: redisMockCalls{
			getTagTask: true, onTaskStarted: true, onTaskComplete: true,
		},
		rmq: rmqMockCalls{reply: true, acknowledgeDelivery: true},
		s3: s3MockCalls{
			getInputText:    true,
			saveResultsFile: true,
		},
		pipeline: pipelineCall{true},
	}
}

func testSuccessfulTask(t *testing.T) {
	testConfiguration(t, mockedClientsConfig{}, successfulCalls())
}

func testMalformedMessage(t *testing.T) {
	worker, mocks := configureWorker(mockedClientsConfig{})
	worker.processMessage(&amqp.Delivery{Body: []byte("not json")})
	assert.Equal(t, redisMockCalls{}, mocks.redis.calls)
	assert.Equal(t, rmqMockCalls{rejectDelivery: true}, mocks.rmq.calls)
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{
					returnedValue: tasks.TagTask{Status: tasks.TaskStatusCompletedSuccess},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{reply: true, acknowledgeDelivery: true},
		},
	)
}

func testAlreadyCompletedWithFailure(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{
					returnedValue: tasks.TagTask{Status: tasks.TaskStatusCompletedFailure},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{reply: true, acknowledgeDelivery: true},
		},
	)
}

func testUserCancelled(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{returnedValue: tasks.TagTask{UserCanceled: true}},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, onTaskCancelled: true},
			rmq:   rmqMockCalls{reply: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskCancelled(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask:      withValue{returnedValue: tasks.TagTask{UserCanceled: true}},
				onTaskCancelled: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, onTaskCancelled: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getTagTask: withValue{returnedValue: tasks.TagTask{Attempts: 3}},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{reply: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskStarted: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true, onTaskStarted: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	expected := successfulCalls()
	expected.rmq = rmqMockCalls{rejectDelivery: true}
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskComplete: failingMethod{fail: true}},
		},
		expected,
	)
}

func testFailedToFetchFromS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{getInputText: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{reply: true, acknowledgeDelivery: true},
			s3:  s3MockCalls{getInputText: true},
		},
	)
}

func testPipelineError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			pipelineMockConfig: pipelineMockConfig{fail: true},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:      rmqMockCalls{reply: true, acknowledgeDelivery: true},
			s3:       s3MockCalls{getInputText: true},
			pipeline: pipelineCall{true},
		},
	)
}

func testPipelinePanic(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			pipelineMockConfig: pipelineMockConfig{panic: true},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:      rmqMockCalls{reply: true, acknowledgeDelivery: true},
			s3:       s3MockCalls{getInputText: true},
			pipeline: pipelineCall{true},
		},
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			pipelineMockConfig: pipelineMockConfig{fail: true},
			redisMockConfig:    redisMockConfig{onTaskFailedWithError: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq:      rmqMockCalls{rejectDelivery: true},
			s3:       s3MockCalls{getInputText: true},
			pipeline: pipelineCall{true},
		},
	)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{saveResultsFile: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getTagTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{reply: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getInputText:    true,
				saveResultsFile: true,
			},
			pipeline: pipelineCall{true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{acknowledgeDelivery: failingMethod{fail: true}},
		},
		successfulCalls(),
	)
}

func testFailedReply(t *testing.T) {
	expected := successfulCalls()
	expected.rmq = rmqMockCalls{reply: true, rejectDelivery: true}
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{reply: failingMethod{fail: true}},
		},
		expected,
	)
}

func testGetTagTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getTagTask: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getTagTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func TestPipelineRequest(t *testing.T) {
	worker, mocks := configureWorker(mockedClientsConfig{
		redisMockConfig: redisMockConfig{
			getTagTask: withValue{returnedValue: tasks.TagTask{TaskID: "task-1", Profile: "wsj"}},
		},
		s3MockConfig: s3MockConfig{getInputText: withValue{returnedValue: []byte("A cat slept")}},
	})
	worker.processMessage(&amqp.Delivery{Body: []byte(`{"task_id": "task-1"}`)})

	assert.Equal(t, pipeline.Request{Tid: "task-1", Profile: "wsj", Text: "A cat slept"}, mocks.pipeline.request)
}

func TestResultsFileKey(t *testing.T) {
	task := &Task{taskID: "task-1"}
	assert.Equal(t, "processed/tagging/task-1/task-1.pos_results.json", getResultsFileKey(task))
}

func TestReplyPublishing(t *testing.T) {
	task := &Task{delivery: &amqp.Delivery{ContentType: "application/json", CorrelationId: "c-1"}}
	msg, err := replyPublishing(task, Message{WorkType: "tagging", TaskID: "task-1", Sender: "api"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "c-1", msg.CorrelationId)

	var message Message
	require.NoError(t, json.Unmarshal(msg.Body, &message))
	assert.Equal(t, Message{WorkType: "tagging", TaskID: "task-1", Sender: senderName}, message)
}

func TestStartWorkerReconnectsQueue(t *testing.T) {
	worker, mocks := configureWorker(mockedClientsConfig{})
	mocks.rmq.deliveries = make(chan amqp.Delivery)
	close(mocks.rmq.deliveries)

	replacement := &rmqMock{deliveries: make(chan amqp.Delivery)}
	close(replacement.deliveries)
	dials := 0
	worker.dial.queue = func() (rmqTransactions, error) {
		dials++
		if dials > 1 {
			return nil, errors.New("broker unreachable")
		}
		return replacement, nil
	}

	err := worker.StartWorker()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliveries")
	assert.Contains(t, err.Error(), "broker unreachable")
	assert.Equal(t, 2, dials)
	assert.True(t, mocks.rmq.closed)
	assert.True(t, replacement.closed)
	assert.True(t, mocks.redis.closed)
	assert.True(t, mocks.s3.closed)
}

func TestStartWorkerReplyChannelError(t *testing.T) {
	worker, mocks := configureWorker(mockedClientsConfig{})
	mocks.rmq.replyErrors = make(chan *amqp.Error, 2)
	mocks.rmq.replyErrors <- nil
	mocks.rmq.replyErrors <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "shutdown"}
	worker.dial.queue = func() (rmqTransactions, error) {
		return nil, errors.New("broker unreachable")
	}

	err := worker.StartWorker()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply")
	assert.Contains(t, err.Error(), "shutdown")
	assert.True(t, mocks.rmq.closed)
}

func TestConnectKeepsClientOnFailure(t *testing.T) {
	worker, mocks := configureWorker(mockedClientsConfig{})
	worker.dial.storage = func() (s3Transactions, error) {
		return nil, errors.New("no credentials")
	}
	require.Error(t, worker.connectStorage())
	assert.True(t, worker.s3 == s3Transactions(mocks.s3))
	assert.False(t, mocks.s3.closed)

	fresh := &s3Mock{}
	worker.dial.storage = func() (s3Transactions, error) {
		return fresh, nil
	}
	require.NoError(t, worker.connectStorage())
	assert.True(t, worker.s3 == s3Transactions(fresh))
	assert.True(t, mocks.s3.closed)
	assert.False(t, fresh.closed)
}

func TestConnectWithoutPreviousClient(t *testing.T) {
	posLogger := logger.NewLogger("Test Worker")
	tasksClient := &redisMock{}
	worker := &Worker{
		posLogger: &posLogger,
		dial: dialers{
			tasks: func() (redisTransactions, error) {
				return tasksClient, nil
			},
		},
	}
	require.NoError(t, worker.connectTasks())
	assert.True(t, worker.redis == redisTransactions(tasksClient))

	worker.Close()
	assert.True(t, tasksClient.closed)
}
