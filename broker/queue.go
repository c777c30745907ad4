package broker

import (
	"log/slog"
	"sync"

	"github.com/casualjim/agentgroup/pkg/slogx"
)

// inbox is the bounded FIFO buffer shared by the messager implementations.
type inbox struct {
	mu      sync.Mutex
	items   []Message
	max     int
	dropped uint64

	overflowing bool
}

func newInbox(limit int) *inbox {
	if limit <= 0 {
		limit = DefaultMaxBuffered
	}
	return &inbox{max: limit}
}

func (q *inbox) push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		q.dropped++
		// once per overflow episode; the dispatch loop reports the running total
		if !q.overflowing {
			slog.Warn("inbox full, dropping messages", slogx.Topic(msg.Topic), slog.Int("max_buffered", q.max), slog.Uint64("dropped", q.dropped))
		}
		q.overflowing = true
		return
	}
	q.overflowing = false
	q.items = append(q.items, msg)
}

func (q *inbox) drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *inbox) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
