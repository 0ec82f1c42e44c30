package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

func testEvent(id string) Event {
	return Event{
		ID:         id,
		Type:       EventStatusChanged,
		Department: domain.DepartmentFinance,
		TicketID:   "ticket-1",
		EmittedAt:  time.Now(),
	}
}

func collect(sub *Subscription, n int, timeout time.Duration) []Event {
	out := make([]Event, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster(8, nil)
	channel := DepartmentChannel(domain.DepartmentFinance)

	first := b.Subscribe(channel)
	second := b.Subscribe(channel)
	defer first.Close()
	defer second.Close()

	b.Publish(channel, testEvent("e1"))

	require.Len(t, collect(first, 1, time.Second), 1)
	require.Len(t, collect(second, 1, time.Second), 1)
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroadcaster(16, nil)
	channel := DepartmentChannel(domain.DepartmentFinance)
	sub := b.Subscribe(channel)
	defer sub.Close()

	for i := 0; i < 10; i++ {
		b.Publish(channel, testEvent(fmt.Sprintf("e%d", i)))
	}

	got := collect(sub, 10, time.Second)
	require.Len(t, got, 10)
	for i, event := range got {
		assert.Equal(t, fmt.Sprintf("e%d", i), event.ID)
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	b := NewBroadcaster(8, nil)
	finance := b.Subscribe(DepartmentChannel(domain.DepartmentFinance))
	library := b.Subscribe(DepartmentChannel(domain.DepartmentLibrary))
	defer finance.Close()
	defer library.Close()

	b.Publish(DepartmentChannel(domain.DepartmentFinance), testEvent("e1"))

	require.Len(t, collect(finance, 1, time.Second), 1)
	assert.Empty(t, collect(library, 1, 50*time.Millisecond))
}

func TestLateSubscriberSeesNoHistory(t *testing.T) {
	b := NewBroadcaster(8, nil)
	channel := DepartmentChannel(domain.DepartmentFinance)

	b.Publish(channel, testEvent("before"))

	sub := b.Subscribe(channel)
	defer sub.Close()
	b.Publish(channel, testEvent("after"))

	got := collect(sub, 2, 100*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].ID)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster(1, nil)
	channel := DepartmentChannel(domain.DepartmentFinance)

	slow := b.Subscribe(channel)
	defer slow.Close()
	healthy := b.Subscribe(channel)
	defer healthy.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// buffer is 1; everything past the first event is dropped for slow
		for i := 0; i < 50; i++ {
			b.Publish(channel, testEvent(fmt.Sprintf("e%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// the healthy subscriber was drained too slowly to get all 50, but the
	// slow one holds exactly its buffered event
	got := collect(slow, 1, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, "e0", got[0].ID)
}

func TestCloseDetachesSubscription(t *testing.T) {
	b := NewBroadcaster(8, nil)
	channel := TicketChannel("ticket-1")

	sub := b.Subscribe(channel)
	sub.Close()
	sub.Close() // idempotent

	b.Publish(channel, testEvent("e1"))

	_, ok := <-sub.C
	assert.False(t, ok, "channel closed after unsubscribe")
}

func TestSubscriptionChannelName(t *testing.T) {
	b := NewBroadcaster(8, nil)
	sub := b.Subscribe(TicketChannel("ticket-42"))
	defer sub.Close()
	assert.Equal(t, "ticket:ticket-42", sub.Channel())
}
