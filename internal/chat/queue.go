package chat

import (
	"sync"

	"github.com/yukin371/seekchat/internal/core"
)

// queue 单生产者单消费者的有界增量队列
//
// 生产者是后台请求协程，push 在队列满时阻塞；消费者是 UI 协程，drain 从不阻塞。
// 消费者调用 drop 丢弃队列后，阻塞中的和之后的 push 都立即返回 false。
// 只有生产者可以 close。
type queue struct {
	ch   chan core.ReceivedDelta
	done chan struct{}
	once sync.Once
}

func newQueue(size int) *queue {
	if size < 1 {
		size = 1
	}
	return &queue{
		ch:   make(chan core.ReceivedDelta, size),
		done: make(chan struct{}),
	}
}

// push 入队，消费者已丢弃队列时返回 false
func (q *queue) push(d core.ReceivedDelta) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	select {
	case q.ch <- d:
		return true
	case <-q.done:
		return false
	}
}

// close 生产者结束
func (q *queue) close() {
	close(q.ch)
}

// drain 取出当前已到达的全部增量；closed 表示生产者已结束且队列已空
func (q *queue) drain() (out []core.ReceivedDelta, closed bool) {
	for {
		select {
		case d, ok := <-q.ch:
			if !ok {
				return out, true
			}
			out = append(out, d)
		default:
			return out, false
		}
	}
}

// drop 消费者放弃队列
func (q *queue) drop() {
	q.once.Do(func() { close(q.done) })
}
