package worker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
)

// NotificationWorker listens on every department channel and emits
// notification-side effects (currently structured log lines) for ticket
// activity. Delivery is at most once; a missed event is simply not
// notified.
type NotificationWorker struct {
	logger *zap.Logger

	mu   sync.Mutex
	subs []*events.Subscription
	wg   sync.WaitGroup
}

// StartNotificationWorker subscribes to all department channels.
func StartNotificationWorker(broadcaster events.Broadcaster, logger *zap.Logger) *NotificationWorker {
	w := &NotificationWorker{logger: logger}
	for _, dept := range domain.Departments() {
		sub := broadcaster.Subscribe(events.DepartmentChannel(dept))
		w.subs = append(w.subs, sub)
		w.wg.Add(1)
		go w.pump(sub)
	}
	return w
}

func (w *NotificationWorker) pump(sub *events.Subscription) {
	defer w.wg.Done()
	for event := range sub.C {
		w.notify(event)
	}
}

func (w *NotificationWorker) notify(event events.Event) {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("department", string(event.Department)),
		zap.String("ticket_id", event.TicketID),
	}
	if event.Actor.ID != "" {
		fields = append(fields, zap.String("actor_id", event.Actor.ID))
	}

	switch event.Type {
	case events.EventTicketCreated:
		w.logger.Info("notify: new ticket filed", fields...)
	case events.EventTicketAssigned:
		w.logger.Info("notify: ticket assigned", fields...)
	case events.EventStatusChanged, events.EventTicketReopened:
		w.logger.Info("notify: ticket state changed", fields...)
	default:
		w.logger.Debug("notify: ticket activity", fields...)
	}
}

// Stop unsubscribes from all channels and waits for in-flight
// notifications to drain.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	w.wg.Wait()
}
