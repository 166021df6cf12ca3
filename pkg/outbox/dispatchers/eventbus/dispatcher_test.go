package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/outbox"
)

type moved struct {
	ID int64 `json:"id"`
}

func decodeMoved(topic string, payload []byte) (*moved, error) {
	if topic != "moved" {
		return nil, errors.New("unknown topic " + topic)
	}
	var m moved
	return &m, json.Unmarshal(payload, &m)
}

func TestDispatcher(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	var got *moved
	bus.Subscribe(func(_ context.Context, m *moved) error {
		got = m
		return nil
	})
	d := New(bus, decodeMoved)

	err := d.Dispatch(context.Background(), outbox.DispatchedMessage{
		Meta:    outbox.Meta{Topic: "moved"},
		Payload: []byte(`{"id":42}`),
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), got.ID)

	err = d.Dispatch(context.Background(), outbox.DispatchedMessage{Meta: outbox.Meta{Topic: "other"}, Payload: []byte(`{}`)})
	require.Error(t, err)
}

func TestDispatcher_HandlerFailureIsReturned(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	bus.Subscribe(func(_ context.Context, m *moved) error { return errors.New("redis down") })

	err := New(bus, decodeMoved).Dispatch(context.Background(), outbox.DispatchedMessage{
		Meta:    outbox.Meta{Topic: "moved"},
		Payload: []byte(`{"id":1}`),
	})
	require.ErrorContains(t, err, "redis down")
}
