package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/pkg/composables"
	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/outbox"
)

// Emitter delivers the order-changed notification of a committed mutation. Stage runs inside
// the ordering transaction and may fail it; Emit runs after commit and never fails.
type Emitter interface {
	Stage(ctx context.Context, ev events.Event) error
	Emit(ctx context.Context, ev events.Event)
}

const emitTimeout = 5 * time.Second

// DirectEmitter publishes on the in-process event bus after commit.
type DirectEmitter struct {
	bus eventbus.EventBusWithError
}

func NewDirectEmitter(bus eventbus.EventBusWithError) *DirectEmitter {
	return &DirectEmitter{bus: bus}
}

func (e *DirectEmitter) Stage(context.Context, events.Event) error {
	return nil
}

func (e *DirectEmitter) Emit(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	if err := e.bus.PublishE(ctx, ev); err != nil {
		recordNotification(ev.Topic(), "failed")
		composables.UseLogger(ctx).
			WithError(err).
			WithField("topic", ev.Topic()).
			WithField("event_id", ev.Meta().EventID.String()).
			Warn("kanban: notification dropped")
		return
	}
	recordNotification(ev.Topic(), "published")
}

// OutboxEmitter writes the event into the outbox table in the ordering transaction; the relay
// publishes it once the transaction has committed.
type OutboxEmitter struct {
	publisher outbox.Publisher
	table     pgx.Identifier
}

func NewOutboxEmitter(publisher outbox.Publisher, table pgx.Identifier) *OutboxEmitter {
	return &OutboxEmitter{publisher: publisher, table: table}
}

func (e *OutboxEmitter) Stage(ctx context.Context, ev events.Event) error {
	tx, err := composables.UseCurrentTx(ctx)
	if err != nil {
		return fmt.Errorf("stage %s: %w", ev.Topic(), err)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("stage %s: %w", ev.Topic(), err)
	}
	meta := ev.Meta()
	if _, err := e.publisher.Enqueue(ctx, tx, e.table, outbox.Message{
		BoardID: meta.BoardID,
		Topic:   ev.Topic(),
		EventID: meta.EventID,
		Payload: payload,
	}); err != nil {
		return err
	}
	return nil
}

func (e *OutboxEmitter) Emit(_ context.Context, ev events.Event) {
	recordNotification(ev.Topic(), "staged")
}
