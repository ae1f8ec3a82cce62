package queue

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTaskInfoLaterQueueHit(t *testing.T) {
	// A miss in "critical" must not mask a hit in a lower-priority queue.
	var asked []string
	lookup := func(queueName, taskID string) (*asynq.TaskInfo, error) {
		asked = append(asked, queueName)
		if queueName == "default" {
			return &asynq.TaskInfo{ID: taskID, Queue: queueName}, nil
		}
		return nil, errors.New("task not found")
	}

	info, err := findTaskInfo(lookup, "task-1")

	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)
	assert.Equal(t, []string{"critical", "default"}, asked)
}

func TestFindTaskInfoAllQueuesMiss(t *testing.T) {
	sentinel := errors.New("task not found")
	lookup := func(string, string) (*asynq.TaskInfo, error) {
		return nil, sentinel
	}

	_, err := findTaskInfo(lookup, "task-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestFindTaskInfoFirstQueueHit(t *testing.T) {
	lookup := func(queueName, taskID string) (*asynq.TaskInfo, error) {
		return &asynq.TaskInfo{ID: taskID, Queue: queueName}, nil
	}

	info, err := findTaskInfo(lookup, "task-1")

	require.NoError(t, err)
	assert.Equal(t, "critical", info.Queue)
}
