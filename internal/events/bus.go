package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventBarIngested     EventType = "BAR_INGESTED"
	EventStructureBreak  EventType = "STRUCTURE_BREAK"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventSignalRejected  EventType = "SIGNAL_REJECTED"
	EventPriceUpdate     EventType = "PRICE_UPDATE"
	EventScanCompleted   EventType = "SCAN_COMPLETED"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishBarIngested publishes a bar ingestion event
func (eb *EventBus) PublishBarIngested(symbol, timeframe string, barTime int64, close float64) {
	eb.Publish(Event{
		Type: EventBarIngested,
		Data: map[string]interface{}{
			"symbol":    symbol,
			"timeframe": timeframe,
			"bar_time":  barTime,
			"close":     close,
		},
	})
}

// PublishStructureBreak publishes a structure break event
func (eb *EventBus) PublishStructureBreak(symbol, timeframe, granularity, tag string, bullish bool, level float64) {
	eb.Publish(Event{
		Type: EventStructureBreak,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"timeframe":   timeframe,
			"granularity": granularity,
			"tag":         tag,
			"bullish":     bullish,
			"level":       level,
		},
	})
}

// PublishSignal publishes a signal generated event
func (eb *EventBus) PublishSignal(signalID, symbol, timeframe, direction string, confidence int, entry float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"signal_id":  signalID,
			"symbol":     symbol,
			"timeframe":  timeframe,
			"direction":  direction,
			"confidence": confidence,
			"entry":      entry,
		},
	})
}

// PublishSignalRejected publishes a quality-gate rejection event
func (eb *EventBus) PublishSignalRejected(symbol, timeframe, reason string, confidence, confirmations int) {
	eb.Publish(Event{
		Type: EventSignalRejected,
		Data: map[string]interface{}{
			"symbol":        symbol,
			"timeframe":     timeframe,
			"reason":        reason,
			"confidence":    confidence,
			"confirmations": confirmations,
		},
	})
}

// PublishPriceUpdate publishes a price update event
func (eb *EventBus) PublishPriceUpdate(symbol string, price float64) {
	eb.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"symbol": symbol,
			"price":  price,
		},
	})
}

// PublishScanCompleted publishes a scanner pass completion event
func (eb *EventBus) PublishScanCompleted(symbols, signals int, elapsed time.Duration) {
	eb.Publish(Event{
		Type: EventScanCompleted,
		Data: map[string]interface{}{
			"symbols":    symbols,
			"signals":    signals,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
