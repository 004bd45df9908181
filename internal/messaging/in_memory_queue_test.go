package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue(t *testing.T) {
	queue := NewInMemoryQueue()

	runId := uuid.New()
	require.NoError(t, queue.PublishRunTask(context.Background(), RunTaskPayload{RunId: runId}))

	task := <-queue.Tasks()
	assert.Equal(t, RunQueue, task.Type())

	var payload RunTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, runId, payload.RunId)

	require.NoError(t, task.Ack())
}

func TestInMemoryQueueClose(t *testing.T) {
	queue := NewInMemoryQueue()
	tasks := queue.Tasks()
	queue.Close()

	_, ok := <-tasks
	assert.False(t, ok)

	// Close is idempotent.
	queue.Close()
}
