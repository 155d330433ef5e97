package timeline

import (
	"sync"
	"time"
)

const eventBuffer = 16

// Event types published on Events.
const (
	EventStoryUpdated  = "story_updated"
	EventTimelineBuilt = "timeline_built"
)

// Event notifies presentation layers about timeline changes.
type Event struct {
	Type     string    `json:"type"`
	Date     string    `json:"date"`
	FilePath string    `json:"file_path,omitempty"`
	Story    string    `json:"story,omitempty"`
	Items    int       `json:"items,omitempty"`
	At       time.Time `json:"at"`
}

// Events fans out timeline events to subscribers. Slow subscribers miss events
// rather than block publishers.
type Events struct {
	mu        sync.RWMutex
	listeners []chan Event
}

// NewEvents creates an empty broadcaster.
func NewEvents() *Events {
	return &Events{}
}

// Subscribe returns a buffered channel receiving future events.
func (e *Events) Subscribe() chan Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	e.listeners = append(e.listeners, ch)
	return ch
}

// Unsubscribe removes and closes ch.
func (e *Events) Unsubscribe(ch chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, listener := range e.listeners {
		if listener == ch {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers ev to every subscriber with buffer space.
func (e *Events) Publish(ev Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, listener := range e.listeners {
		select {
		case listener <- ev:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Subscribers returns the number of active subscribers.
func (e *Events) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
