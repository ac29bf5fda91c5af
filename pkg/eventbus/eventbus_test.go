package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/traceframe-dev/traceframe/pkg/eventbus"
)

func TestPublishInvokesSubscriber(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()

	var got any
	bus.Subscribe(eventbus.TopicDataLoaded, func(payload any) { got = payload })

	bus.Publish(eventbus.TopicDataLoaded, "project.mpai")

	assert.Equal(t, "project.mpai", got)
}

func TestUnsubscribeStopsNotification(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()

	calls := 0
	sub := bus.Subscribe(eventbus.TopicCursorsCleared, func(any) { calls++ })

	bus.Unsubscribe(sub)
	bus.Publish(eventbus.TopicCursorsCleared, nil)

	assert.Equal(t, 0, calls)
}

func TestMultipleSubscribersAllInvoked(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()

	calls := 0
	bus.Subscribe(eventbus.TopicDataCleared, func(any) { calls++ })
	bus.Subscribe(eventbus.TopicDataCleared, func(any) { calls++ })

	bus.Publish(eventbus.TopicDataCleared, nil)

	assert.Equal(t, 2, calls)
}

func TestUnsubscribeOnlyAffectsItsOwnTopic(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()

	calls := 0
	bus.Subscribe(eventbus.TopicDataLoaded, func(any) { calls++ })
	sub := bus.Subscribe(eventbus.TopicDataCleared, func(any) { calls++ })

	bus.Unsubscribe(sub)
	bus.Publish(eventbus.TopicDataLoaded, nil)

	assert.Equal(t, 1, calls)
}
