// Package notify delivers transient user-facing messages.
package notify

import (
	"log"
	"sync"
	"time"
)

// Notifier is the toast surface. Calls are fire-and-forget.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message is a single toast.
type Message struct {
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Log writes every toast to the standard logger.
type Log struct{}

func (Log) Success(message string) { log.Printf("[notify] success :: %s", message) }
func (Log) Error(message string)   { log.Printf("[notify] error :: %s", message) }

// Queue holds pending toasts until a client drains them. When full, the
// oldest message is dropped.
type Queue struct {
	mu      sync.Mutex
	pending []Message
	limit   int
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 32
	}
	return &Queue{limit: limit}
}

func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }
func (q *Queue) Error(message string)   { q.push(LevelError, message) }

func (q *Queue) push(level Level, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == q.limit {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, Message{Level: level, Text: text, At: time.Now()})
}

// Drain returns the pending toasts and forgets them.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

// Fanout sends every toast to each notifier in order.
type Fanout []Notifier

func (f Fanout) Success(message string) {
	for _, n := range f {
		n.Success(message)
	}
}

func (f Fanout) Error(message string) {
	for _, n := range f {
		n.Error(message)
	}
}
