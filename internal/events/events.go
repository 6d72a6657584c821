// Package events publishes authorization lifecycle events.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TypeAuthorizationCompleted = "authorization.completed"
	TypeAuthorizationFailed    = "authorization.failed"
)

// Event never carries tokens or codes.
type Event struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id,omitempty"`
	ShopID    string    `json:"shop_id,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Time      time.Time `json:"time"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
