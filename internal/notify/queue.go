// Package notify holds the transient, user-visible outcome queue.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a notification stays visible unless dismissed.
const DefaultTTL = 5 * time.Second

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Notification is one short-lived outcome report.
type Notification struct {
	ID        string
	Kind      Kind
	Title     string
	Message   string
	TTL       time.Duration
	CreatedAt time.Time
}

// Queue keeps notifications in insertion order and removes each one when its
// TTL elapses or it is dismissed. Ids are never reused, so a timer that fires
// after an explicit dismissal finds nothing to remove.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	items   []Notification
	timers  map[string]*time.Timer
	changed chan struct{}
}

// NewQueue creates a queue whose notifications expire after ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:     ttl,
		timers:  make(map[string]*time.Timer),
		changed: make(chan struct{}, 1),
	}
}

// Publish appends a notification with the queue's default TTL and schedules
// its removal. It returns the generated id.
func (q *Queue) Publish(kind Kind, title, message string) string {
	return q.PublishTTL(kind, title, message, 0)
}

// PublishTTL is Publish with an explicit TTL. A non-positive ttl uses the
// queue default.
func (q *Queue) PublishTTL(kind Kind, title, message string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = q.ttl
	}

	n := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		TTL:       ttl,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.timers[n.ID] = time.AfterFunc(ttl, func() { q.Dismiss(n.ID) })
	q.mu.Unlock()

	q.signal()
	return n.ID
}

// Dismiss removes a notification immediately and cancels its timer.
// Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}

	removed := false
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()

	if removed {
		q.signal()
	}
}

// List returns the current notifications in insertion order.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len reports how many notifications are currently visible.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Changed is signalled whenever the visible set changes. The channel carries
// at most one pending signal; receivers re-read List after each receive.
func (q *Queue) Changed() <-chan struct{} {
	return q.changed
}

// Close cancels all outstanding timers. The queue must not be used afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
}

func (q *Queue) signal() {
	select {
	case q.changed <- struct{}{}:
	default:
	}
}
