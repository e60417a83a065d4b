package event

import "sync"

// Emitter accepts progress messages.
type Emitter interface {
	Emit(Message)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Message)

// Emit calls f(m).
func (f EmitterFunc) Emit(m Message) { f(m) }

// Queue is a channel-backed Emitter. Emit blocks while the buffer is full.
// Messages emitted after Close are dropped.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewQueue creates a Queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{ch: make(chan Message, size)}
}

// Emit enqueues m.
func (q *Queue) Emit(m Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- m
}

// C returns the receive side of the queue. It is closed by Close.
func (q *Queue) C() <-chan Message {
	return q.ch
}

// Close closes the queue. Safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
