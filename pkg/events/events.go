// Package events carries console notifications to views and telemetry.
package events

import (
	"strconv"
	"sync"
	"time"
)

// UIEvent is one notification delivered to subscribers.
type UIEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Console event types
const (
	EventTypePromptInserted = "prompt_inserted"
	EventTypeBufferAppended = "buffer_appended"
	EventTypeBufferRemoved  = "buffer_removed"
	EventTypeInputRequested = "input_requested"
	EventTypeInputResolved  = "input_resolved"
	EventTypeError          = "error"
)

// subscriberBuffer is the per-subscriber queue length.
const subscriberBuffer = 100

// EventBus fans events out to named subscribers. Slow subscribers miss
// events rather than stall the publisher. A nil *EventBus drops everything.
type EventBus struct {
	subscribers map[string]chan UIEvent
	mutex       sync.RWMutex
	nextID      int64
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan UIEvent),
	}
}

// Subscribe adds a subscriber. Subscribing again under the same name
// replaces and closes the previous channel.
func (eb *EventBus) Subscribe(name string) <-chan UIEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if old, exists := eb.subscribers[name]; exists {
		close(old)
	}
	ch := make(chan UIEvent, subscriberBuffer)
	eb.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (eb *EventBus) Unsubscribe(name string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if ch, exists := eb.subscribers[name]; exists {
		delete(eb.subscribers, name)
		close(ch)
	}
}

// Publish broadcasts an event to all subscribers
func (eb *EventBus) Publish(eventType string, data any) {
	if eb == nil {
		return
	}

	eb.mutex.Lock()
	eb.nextID++
	event := UIEvent{
		ID:        generateEventID(eb.nextID),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	eb.mutex.Unlock()

	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send. They never block.
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// generateEventID creates a unique event ID
func generateEventID(id int64) string {
	return time.Now().Format("20060102-150405") + "-" + strconv.FormatInt(id, 10)
}

// PromptInsertedEvent reports a new prompt whose input region starts at offset.
func PromptInsertedEvent(offset int) map[string]interface{} {
	return map[string]interface{}{
		"offset": offset,
	}
}

// BufferAppendedEvent reports text inserted at offset. style is an opaque
// rendering tag.
func BufferAppendedEvent(offset int, text string, style any) map[string]interface{} {
	return map[string]interface{}{
		"offset": offset,
		"text":   text,
		"style":  style,
	}
}

// BufferRemovedEvent reports length runes removed at offset.
func BufferRemovedEvent(offset, length int) map[string]interface{} {
	return map[string]interface{}{
		"offset": offset,
		"length": length,
	}
}

// InputRequestedEvent reports that a reader is blocked waiting for a line.
func InputRequestedEvent(requestID uint64, mode string) map[string]interface{} {
	return map[string]interface{}{
		"request_id": requestID,
		"mode":       mode,
	}
}

// InputResolvedEvent reports that a pending read was answered or canceled.
func InputResolvedEvent(requestID uint64, canceled bool) map[string]interface{} {
	return map[string]interface{}{
		"request_id": requestID,
		"canceled":   canceled,
	}
}

// ErrorEvent creates an error event
func ErrorEvent(message string, err error) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"error":   err.Error(),
	}
}
