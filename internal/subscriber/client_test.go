package subscriber

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
)

type recorder struct {
	mu      sync.Mutex
	events  []events.Event
	resyncs int
}

func (r *recorder) onEvent(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) onResync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resyncs++
}

func (r *recorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) waitFor(t *testing.T, n int) []events.Event {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	return r.snapshot()
}

func newTestClient(t *testing.T, role domain.ActorRole) (events.Broadcaster, *Client, *recorder) {
	t.Helper()
	b := events.NewBroadcaster(16, nil)
	rec := &recorder{}
	client := NewClient(b, Options{
		Role:     role,
		OnEvent:  rec.onEvent,
		OnResync: rec.onResync,
	})
	t.Cleanup(client.Close)
	return b, client, rec
}

func commentEvent(id, commentID, author, body string, ts time.Time, internal bool) events.Event {
	return events.Event{
		ID:         id,
		Type:       events.EventCommentAdded,
		Department: domain.DepartmentFinance,
		TicketID:   "ticket-1",
		Internal:   internal,
		Payload: events.CommentAddedPayload{
			CommentID:  commentID,
			AuthorName: author,
			Internal:   internal,
			Body:       body,
			CreatedAt:  ts,
		},
		EmittedAt: ts,
	}
}

func TestClientReceivesDepartmentEvents(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinDepartment(domain.DepartmentFinance)

	b.Publish(events.DepartmentChannel(domain.DepartmentFinance), events.Event{
		ID:   "e1",
		Type: events.EventTicketCreated,
	})

	got := rec.waitFor(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
}

func TestClientJoinAndLeaveTicket(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinTicket("ticket-1")
	assert.Contains(t, client.Channels(), events.TicketChannel("ticket-1"))

	ts := time.Now()
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e1", "c1", "alex", "hello", ts, false))
	require.Len(t, rec.waitFor(t, 1), 1)

	client.LeaveTicket("ticket-1")
	assert.NotContains(t, client.Channels(), events.TicketChannel("ticket-1"))

	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e2", "c2", "alex", "again", ts.Add(time.Second), false))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestClientDeduplicatesCommentByID(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinDepartment(domain.DepartmentFinance)
	client.JoinTicket("ticket-1")

	ts := time.Now()
	// same comment arrives on both joined channels
	event := commentEvent("e1", "c1", "alex", "hello", ts, false)
	b.Publish(events.DepartmentChannel(domain.DepartmentFinance), event)
	event.ID = "e2"
	b.Publish(events.TicketChannel("ticket-1"), event)

	got := rec.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1, "duplicate comment suppressed")
	assert.Equal(t, got[0].Type, events.EventCommentAdded)
}

func TestClientDeduplicatesOptimisticLocalComment(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinTicket("ticket-1")

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	client.MarkLocalComment(domain.Comment{
		ID:         "c1",
		TicketID:   "ticket-1",
		AuthorName: "alex",
		Body:       "hello",
		CreatedAt:  ts,
	})

	// echo of the locally posted comment
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e1", "c1", "alex", "hello", ts, false))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// a genuinely different comment still arrives
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e2", "c2", "sam", "other", ts.Add(time.Second), false))
	assert.Len(t, rec.waitFor(t, 1), 1)
}

func TestClientDeduplicatesByFingerprintWhenIDDiffers(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinTicket("ticket-1")

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	client.MarkLocalComment(domain.Comment{
		TicketID:   "ticket-1",
		AuthorName: "alex",
		Body:       "hello",
		CreatedAt:  ts,
	})

	// broadcast carries the server-assigned id, unknown to the client
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e1", "server-id", "alex", "hello", ts, false))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestClientFiltersInternalEventsForNonStaff(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinTicket("ticket-1")

	ts := time.Now()
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e1", "c1", "staff", "internal note", ts, true))
	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e2", "c2", "staff", "public reply", ts.Add(time.Second), false))

	got := rec.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, rec.snapshot(), 1)
	assert.Equal(t, "e2", got[0].ID)
}

func TestClientDeliversInternalEventsToStaff(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleStaff)
	client.JoinTicket("ticket-1")

	b.Publish(events.TicketChannel("ticket-1"), commentEvent("e1", "c1", "staff", "internal note", time.Now(), true))
	assert.Len(t, rec.waitFor(t, 1), 1)
}

func TestClientReconnectResubscribesAndResyncsOnce(t *testing.T) {
	b, client, rec := newTestClient(t, domain.RoleUser)
	client.JoinDepartment(domain.DepartmentFinance)
	client.JoinTicket("ticket-1")

	// events published while "disconnected" are lost
	client.Reconnect()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.resyncs == 1
	}, time.Second, 5*time.Millisecond)

	assert.ElementsMatch(t, []string{
		events.DepartmentChannel(domain.DepartmentFinance),
		events.TicketChannel("ticket-1"),
	}, client.Channels())

	b.Publish(events.DepartmentChannel(domain.DepartmentFinance), events.Event{ID: "after", Type: events.EventTicketCreated})
	got := rec.waitFor(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].ID)
}

func TestClientCloseStopsDelivery(t *testing.T) {
	b := events.NewBroadcaster(16, nil)
	rec := &recorder{}
	client := NewClient(b, Options{Role: domain.RoleUser, OnEvent: rec.onEvent})
	client.JoinDepartment(domain.DepartmentFinance)
	client.Close()

	b.Publish(events.DepartmentChannel(domain.DepartmentFinance), events.Event{ID: "e1"})
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.Empty(t, client.Channels())

	// join after close is a no-op
	client.JoinTicket("ticket-1")
	assert.Empty(t, client.Channels())
}
