// Package eventbus is a small typed publish/subscribe hub used to notify
// the rendering collaborator of state changes (filter results, cursor
// moves, stats recomputation) without coupling the core to any UI
// framework.
package eventbus

import "sync"

// Topic names the exact event topics published by the analysis core.
type Topic string

const (
	TopicDataLoaded           Topic = "DataLoaded"
	TopicDataCleared          Topic = "DataCleared"
	TopicFilterStarted        Topic = "FilterStarted"
	TopicFilterProgress       Topic = "FilterProgress"
	TopicFilterApplied        Topic = "FilterApplied"
	TopicFilterFailed         Topic = "FilterFailed"
	TopicConcatenationApplied Topic = "ConcatenationApplied"
	TopicConcatenationCleared Topic = "ConcatenationCleared"
	TopicCursorMoved          Topic = "CursorMoved"
	TopicCursorsCleared       Topic = "CursorsCleared"
	TopicStatsUpdated         Topic = "StatsUpdated"
	TopicLimitsChanged        Topic = "LimitsChanged"
	TopicDeviationChanged     Topic = "DeviationChanged"
)

// Handler receives an event payload published on a topic. The payload's
// concrete type is documented per topic (see the *Payload structs in this
// package).
type Handler func(payload any)

// Bus is a thread-safe, synchronous pub/sub hub: Publish invokes every
// subscribed handler for the topic on the calling goroutine, in
// subscription order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Topic][]subscription
	nextID      uint64
}

type subscription struct {
	id      uint64
	handler Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[Topic][]subscription)}
}

// Subscription identifies a registered handler for later Unsubscribe.
type Subscription struct {
	topic Topic
	id    uint64
}

// Subscribe registers a handler for a topic and returns a token that
// Unsubscribe accepts to remove it.
func (b *Bus) Subscribe(topic Topic, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})

	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes a previously registered handler. Safe to call
// before destroying a worker so a live job can never notify a dead
// observer.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.topic] = append(subs[:i], subs[i+1:]...)

			return
		}
	}
}

// Publish invokes every handler subscribed to topic with payload.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
}

// FilterStartedPayload is the payload published on TopicFilterStarted.
type FilterStartedPayload struct {
	TabID, GraphID string
}

// FilterProgressPayload is the payload published on TopicFilterProgress.
type FilterProgressPayload struct {
	TabID, GraphID string
	Percent        int
}

// FilterAppliedPayload is the payload published on TopicFilterApplied.
type FilterAppliedPayload struct {
	TabID, GraphID string
	Segments       []Segment
}

// Segment mirrors model.Segment without importing pkg/model, keeping
// eventbus free of a dependency on the domain model.
type Segment struct {
	Start, End float64
}

// FilterFailedPayload is the payload published on TopicFilterFailed.
type FilterFailedPayload struct {
	TabID, GraphID string
	Reason         string
}

// ConcatenationPayload is the payload published on
// TopicConcatenationApplied and TopicConcatenationCleared.
type ConcatenationPayload struct {
	TabID string
}

// CursorMovedPayload is the payload published on TopicCursorMoved.
type CursorMovedPayload struct {
	C1, C2 *float64
}

// StatsUpdatedPayload is the payload published on TopicStatsUpdated.
type StatsUpdatedPayload struct {
	Signal string
	Stats  map[string]float64
}

// LimitsChangedPayload is the payload published on TopicLimitsChanged.
type LimitsChangedPayload struct {
	GraphID string
}

// DeviationChangedPayload is the payload published on
// TopicDeviationChanged.
type DeviationChangedPayload struct {
	GraphID string
}
