package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
)

// LogTransport stands in for the real-time fan-out when no Redis is configured.
type LogTransport struct {
	log *logrus.Entry
}

func NewLogTransport(log *logrus.Entry) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Publish(_ context.Context, ev events.Event) error {
	meta := ev.Meta()
	t.log.WithFields(logrus.Fields{
		"topic":    ev.Topic(),
		"board_id": meta.BoardID,
		"card_id":  meta.CardID,
	}).Info("kanban: real-time transport disabled, event logged only")
	return nil
}
