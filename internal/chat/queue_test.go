package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yukin371/seekchat/internal/core"
)

func TestQueueDrainNonBlocking(t *testing.T) {
	q := newQueue(4)

	out, closed := q.drain()
	assert.Empty(t, out)
	assert.False(t, closed)

	assert.True(t, q.push(core.ReceivedDelta{Content: "a"}))
	assert.True(t, q.push(core.ReceivedDelta{Content: "b", Finished: true}))
	q.close()

	out, closed = q.drain()
	assert.Equal(t, []core.ReceivedDelta{{Content: "a"}, {Content: "b", Finished: true}}, out)
	assert.True(t, closed)
}

func TestQueuePushAfterDrop(t *testing.T) {
	q := newQueue(1)
	q.drop()
	q.drop()

	assert.False(t, q.push(core.ReceivedDelta{Content: "a"}))
}

func TestQueueDropUnblocksFullPush(t *testing.T) {
	q := newQueue(1)
	assert.True(t, q.push(core.ReceivedDelta{Content: "a"}))

	result := make(chan bool)
	go func() { result <- q.push(core.ReceivedDelta{Content: "b"}) }()

	select {
	case <-result:
		t.Fatal("push on a full queue should block")
	case <-time.After(20 * time.Millisecond):
	}

	q.drop()
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("drop should unblock the producer")
	}
}

func TestQueueMinimumSize(t *testing.T) {
	q := newQueue(0)
	assert.Equal(t, 1, cap(q.ch))
}
