package events

import (
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/log"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventActionExecuted      EventType = "action.executed"
	EventActionFailed        EventType = "action.failed"
	EventActionApproved      EventType = "action.approved"
	EventApprovalExpired     EventType = "action.expired"
	EventThermalAlert        EventType = "thermal.alert"
	EventBankIsolated        EventType = "bank.isolated"
	EventEmergencyMode       EventType = "power.emergency"
	EventConflictDetected    EventType = "conflict.detected"
	EventActivityRescheduled EventType = "activity.rescheduled"
	EventPriorityEscalated   EventType = "priority.escalated"
	EventActivityMissed      EventType = "activity.missed"
)

// Event is a notification raised by one of the predictors
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Predictor string            `json:"predictor"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber][]EventType
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber][]EventType),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription. With no types the subscriber
// receives every event.
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = types
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish queues an event for delivery. ID and Timestamp are filled in when
// empty. Events are dropped once the queue is full.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	default:
		log.Logger.Warn().
			Str("event_type", string(event.Type)).
			Msg("event queue full, dropping event")
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, types := range b.subscribers {
		if !wants(types, event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

func wants(types []EventType, t EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
