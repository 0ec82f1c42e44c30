package events

import (
	"sync"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// DepartmentChannel names the broadcast scope shared by every viewer of a
// department's list or dashboard.
func DepartmentChannel(dept domain.Department) string {
	return "department:" + string(dept)
}

// TicketChannel names the broadcast scope joined while a ticket's detail
// view is open.
func TicketChannel(ticketID string) string {
	return "ticket:" + ticketID
}

// Broadcaster fans events out to the subscribers of a channel. Delivery
// is at-most-once: publish never blocks, slow subscribers lose events,
// and there is no replay for late joiners.
type Broadcaster interface {
	Publish(channel string, event Event)
	Subscribe(channel string) *Subscription
}

// Subscription is one subscriber's attachment to a channel. Events arrive
// on C in publish order until Close.
type Subscription struct {
	C <-chan Event

	channel string
	ch      chan Event
	once    sync.Once
	cancel  func(*Subscription)
}

// Channel returns the channel this subscription is attached to.
func (s *Subscription) Channel() string {
	return s.channel
}

// Close detaches the subscription. Closing is a no-op with respect to the
// channel's other subscribers and may be called more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel(s)
		close(s.ch)
	})
}

type broadcaster struct {
	mu       sync.RWMutex
	channels map[string]map[*Subscription]struct{}
	buffer   int
	metrics  *observability.Metrics
}

// NewBroadcaster creates an in-process broadcaster. buffer is the per-
// subscriber queue depth before events are dropped.
func NewBroadcaster(buffer int, metrics *observability.Metrics) Broadcaster {
	if buffer <= 0 {
		buffer = 32
	}
	return &broadcaster{
		channels: make(map[string]map[*Subscription]struct{}),
		buffer:   buffer,
		metrics:  metrics,
	}
}

// Publish delivers event to every current subscriber of channel. Holding
// the read lock while sending keeps per-channel publish order stable for
// each subscriber.
func (b *broadcaster) Publish(channel string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.channels[channel]
	if len(subs) == 0 {
		return
	}
	b.metrics.RecordEventPublished(string(event.Type))
	for sub := range subs {
		select {
		case sub.ch <- event:
		default:
			b.metrics.RecordEventDropped()
		}
	}
}

// Subscribe attaches a new subscriber to channel.
func (b *broadcaster) Subscribe(channel string) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{
		C:       ch,
		channel: channel,
		ch:      ch,
		cancel:  func(s *Subscription) { b.unsubscribe(channel, s) },
	}
	b.mu.Lock()
	if b.channels[channel] == nil {
		b.channels[channel] = make(map[*Subscription]struct{})
	}
	b.channels[channel][sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *broadcaster) unsubscribe(channel string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.channels[channel]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.channels, channel)
	}
}
