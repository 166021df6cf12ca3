package eventbus

import (
	"context"
	"encoding/json"

	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/outbox"
)

// Decoder restores the typed event stored in an outbox row.
type Decoder[T any] func(topic string, payload []byte) (T, error)

// Dispatcher republishes outbox rows on the in-process bus as typed events. Handler errors and
// panics surface from PublishE and make the relay retry the row.
type Dispatcher[T any] struct {
	bus    eventbus.EventBusWithError
	decode Decoder[T]
}

func New[T any](bus eventbus.EventBusWithError, decode func(topic string, payload []byte) (T, error)) *Dispatcher[T] {
	return &Dispatcher[T]{
		bus:    bus,
		decode: decode,
	}
}

func (d *Dispatcher[T]) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	ev, err := d.decode(msg.Meta.Topic, json.RawMessage(msg.Payload))
	if err != nil {
		return err
	}
	return d.bus.PublishE(ctx, ev)
}
