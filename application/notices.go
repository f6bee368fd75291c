package application

import (
	"sync"

	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
)

// noticeQueue forwards notices to a channel without ever blocking the event
// loop on a slow reader.
type noticeQueue struct {
	mu     sync.Mutex
	queue  []poker.Notice
	ready  chan struct{}
	out    chan poker.Notice
	closed chan struct{}
	once   sync.Once
}

func newNoticeQueue() *noticeQueue {
	q := &noticeQueue{
		ready:  make(chan struct{}, 1),
		out:    make(chan poker.Notice),
		closed: make(chan struct{}),
	}
	go q.forward()
	return q
}

func (q *noticeQueue) Notify(n poker.Notice) {
	q.mu.Lock()
	q.queue = append(q.queue, n)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *noticeQueue) forward() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.mu.Unlock()
			select {
			case <-q.ready:
				continue
			case <-q.closed:
				return
			}
		}
		n := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()
		select {
		case q.out <- n:
		case <-q.closed:
			return
		}
	}
}

func (q *noticeQueue) close() {
	q.once.Do(func() { close(q.closed) })
}
