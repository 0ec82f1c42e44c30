package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/subscriber"
)

type dispatchFixture struct {
	handler *EventsHandler
	client  *subscriber.Client
	replies []serverFrame
}

func newDispatchFixture(role domain.ActorRole) *dispatchFixture {
	broadcaster := events.NewBroadcaster(8, nil)
	return &dispatchFixture{
		handler: NewEventsHandler(broadcaster, zap.NewNop()),
		client:  subscriber.NewClient(broadcaster, subscriber.Options{Role: role}),
	}
}

func (f *dispatchFixture) dispatch(principal *auth.Principal, frame clientFrame) {
	f.handler.dispatch(f.client, principal, frame, func(frame serverFrame) {
		f.replies = append(f.replies, frame)
	})
}

func TestDispatchDepartmentJoinRejectsPlainUser(t *testing.T) {
	f := newDispatchFixture(domain.RoleUser)
	principal := &auth.Principal{ID: "user-1", Role: domain.RoleUser}

	f.dispatch(principal, clientFrame{Action: "join", Department: "FINANCE"})

	assert.Empty(t, f.client.Channels())
	require.Len(t, f.replies, 1)
	assert.Equal(t, "error", f.replies[0].Type)
}

func TestDispatchDepartmentJoinRejectsMissingPrincipal(t *testing.T) {
	f := newDispatchFixture(domain.RoleUser)

	f.dispatch(nil, clientFrame{Action: "join", Department: "FINANCE"})

	assert.Empty(t, f.client.Channels())
	require.Len(t, f.replies, 1)
	assert.Equal(t, "error", f.replies[0].Type)
}

func TestDispatchDepartmentJoinRejectsCrossDepartmentStaff(t *testing.T) {
	f := newDispatchFixture(domain.RoleStaff)
	principal := &auth.Principal{ID: "staff-1", Role: domain.RoleStaff, Department: domain.DepartmentLibrary}

	f.dispatch(principal, clientFrame{Action: "join", Department: "FINANCE"})

	assert.Empty(t, f.client.Channels())
	require.Len(t, f.replies, 1)
	assert.Equal(t, "error", f.replies[0].Type)
}

func TestDispatchDepartmentJoinAllowsOwnDepartmentStaff(t *testing.T) {
	f := newDispatchFixture(domain.RoleStaff)
	principal := &auth.Principal{ID: "staff-1", Role: domain.RoleStaff, Department: domain.DepartmentFinance}

	f.dispatch(principal, clientFrame{Action: "join", Department: "FINANCE"})

	assert.Empty(t, f.replies)
	assert.Equal(t, []string{events.DepartmentChannel(domain.DepartmentFinance)}, f.client.Channels())
}

func TestDispatchDepartmentJoinAllowsAdminAnywhere(t *testing.T) {
	f := newDispatchFixture(domain.RoleAdmin)
	principal := &auth.Principal{ID: "admin-1", Role: domain.RoleAdmin, Department: domain.DepartmentHostel}

	f.dispatch(principal, clientFrame{Action: "join", Department: "FINANCE"})

	assert.Empty(t, f.replies)
	assert.Equal(t, []string{events.DepartmentChannel(domain.DepartmentFinance)}, f.client.Channels())
}

func TestDispatchTicketJoinAllowedForUsers(t *testing.T) {
	f := newDispatchFixture(domain.RoleUser)
	principal := &auth.Principal{ID: "user-1", Role: domain.RoleUser}

	f.dispatch(principal, clientFrame{Action: "join", TicketID: "t-1"})

	assert.Empty(t, f.replies)
	assert.Equal(t, []string{events.TicketChannel("t-1")}, f.client.Channels())
}

func TestDispatchUnknownActionReplies(t *testing.T) {
	f := newDispatchFixture(domain.RoleUser)

	f.dispatch(nil, clientFrame{Action: "subscribe"})

	require.Len(t, f.replies, 1)
	assert.Equal(t, "error", f.replies[0].Type)
}
