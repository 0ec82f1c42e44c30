package handlers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/subscriber"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// clientFrame is an inbound control message from a connected viewer.
type clientFrame struct {
	Action     string `json:"action"`
	Department string `json:"department,omitempty"`
	TicketID   string `json:"ticket_id,omitempty"`
}

// serverFrame wraps outbound messages so viewers can distinguish live
// events from control notices such as resync.
type serverFrame struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Event   *events.Event `json:"event,omitempty"`
}

// EventsHandler upgrades connections to websocket and bridges the
// broadcaster to each connected viewer.
type EventsHandler struct {
	broadcaster events.Broadcaster
	logger      *zap.Logger
}

// NewEventsHandler constructs handler.
func NewEventsHandler(broadcaster events.Broadcaster, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, logger: logger}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *EventsHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return apperrors.NewValidationError("websocket upgrade required", nil)
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		c.Locals("ws_principal", principal)
	}
	return c.Next()
}

// Serve returns the websocket connection handler.
func (h *EventsHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, _ := conn.Locals("ws_principal").(*auth.Principal)
		role := domain.RoleUser
		if principal != nil {
			role = principal.Role
		}

		// gofiber's websocket conn is not safe for concurrent writes
		var writeMu sync.Mutex
		writeJSON := func(frame serverFrame) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
			}
		}

		client := subscriber.NewClient(h.broadcaster, subscriber.Options{
			Role: role,
			OnEvent: func(event events.Event) {
				writeJSON(serverFrame{Type: "event", Event: &event})
			},
			OnResync: func() {
				writeJSON(serverFrame{Type: "resync"})
			},
		})
		defer client.Close()

		for {
			var frame clientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			h.dispatch(client, principal, frame, writeJSON)
		}
	})
}

func (h *EventsHandler) dispatch(client *subscriber.Client, principal *auth.Principal, frame clientFrame, reply func(serverFrame)) {
	switch frame.Action {
	case "join":
		if frame.TicketID != "" {
			client.JoinTicket(frame.TicketID)
			return
		}
		dept, ok := domain.ParseDepartment(frame.Department)
		if !ok {
			reply(serverFrame{Type: "error", Message: "unknown department"})
			return
		}
		// department streams carry every ticket's activity; scoped like
		// list and dashboard access
		if principal == nil || !principal.Role.IsStaff() {
			reply(serverFrame{Type: "error", Message: "department channel requires a staff role"})
			return
		}
		if principal.Role != domain.RoleAdmin && dept != principal.Department {
			reply(serverFrame{Type: "error", Message: "department channel limited to own department"})
			return
		}
		client.JoinDepartment(dept)
	case "leave":
		if frame.TicketID != "" {
			client.LeaveTicket(frame.TicketID)
		}
	default:
		reply(serverFrame{Type: "error", Message: "unknown action"})
	}
}
