package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/pkg/eventbus"
)

// Transport delivers an event to the real-time rooms it is scoped to.
type Transport interface {
	Publish(ctx context.Context, ev events.Event) error
}

type NotificationHandler struct {
	transport Transport
	log       *logrus.Entry
}

// RegisterNotificationHandler subscribes the transport fan-out to every kanban event on the bus.
// Errors are returned to the publisher: the direct emitter logs and drops them, the outbox relay
// retries the row.
func RegisterNotificationHandler(bus eventbus.EventBus, transport Transport, log *logrus.Entry) *NotificationHandler {
	h := &NotificationHandler{transport: transport, log: log}
	bus.Subscribe(h.onEvent)
	return h
}

func (h *NotificationHandler) onEvent(ctx context.Context, ev events.Event) error {
	if err := h.transport.Publish(ctx, ev); err != nil {
		return err
	}
	if h.log != nil {
		meta := ev.Meta()
		h.log.WithFields(logrus.Fields{
			"topic":    ev.Topic(),
			"board_id": meta.BoardID,
			"event_id": meta.EventID.String(),
		}).Debug("kanban: event fanned out")
	}
	return nil
}
