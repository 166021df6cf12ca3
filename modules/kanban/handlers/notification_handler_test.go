package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/pkg/eventbus"
)

type recordingTransport struct {
	got []events.Event
	err error
}

func (r *recordingTransport) Publish(_ context.Context, ev events.Event) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, ev)
	return nil
}

func TestNotificationHandler_ForwardsEveryTopic(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	transport := &recordingTransport{}
	RegisterNotificationHandler(bus, transport, nil)

	all := []events.Event{
		events.NewListCreated(1, 2, "Todo", 1000),
		events.NewListMoved(1, 2, 1500, nil, nil),
		events.NewCardCreated(1, 2, 3, "Task", 1000),
		events.NewCardMoved(1, 3, 2, 2, 500, nil, nil),
		events.NewBoardRebalanced(1, 1, 1),
	}
	for _, ev := range all {
		require.NoError(t, bus.PublishE(context.Background(), ev))
	}
	require.Equal(t, all, transport.got)
}

func TestNotificationHandler_SurfacesTransportErrors(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	down := errors.New("redis down")
	RegisterNotificationHandler(bus, &recordingTransport{err: down}, nil)

	err := bus.PublishE(context.Background(), events.NewListCreated(1, 2, "Todo", 1000))
	require.ErrorIs(t, err, down)
}

func TestLogTransport(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	bus := eventbus.NewEventPublisher(nil)
	RegisterNotificationHandler(bus, NewLogTransport(logrus.NewEntry(log)), nil)

	require.NoError(t, bus.PublishE(context.Background(), events.NewCardMoved(4, 9, 1, 2, 1500, nil, nil)))
	require.Len(t, hook.Entries, 1)
	require.Equal(t, events.TopicCardMoved, hook.LastEntry().Data["topic"])
	require.Equal(t, int64(4), hook.LastEntry().Data["board_id"])
	require.Equal(t, int64(9), hook.LastEntry().Data["card_id"])
}
