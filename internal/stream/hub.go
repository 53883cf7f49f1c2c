// Package stream fans dashboard events out to live subscribers.
package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMarket    EventType = "market"
	EventPortfolio EventType = "portfolio"
	EventError     EventType = "error"
)

type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

const DefaultBuffer = 16

// Hub delivers each published event to every subscriber. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	buffer int

	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{buffer: buffer, subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber. cancel unregisters it and closes
// the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (id string, events <-chan Event, cancel func()) {
	id = uuid.NewString()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return id, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish returns the number of subscribers that received e.
func (h *Hub) Publish(e Event) int {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
