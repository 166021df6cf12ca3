package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
)

// Envelope is the message body delivered on every channel.
type Envelope struct {
	Event string       `json:"event"`
	Data  events.Event `json:"data"`
}

// RedisPublisher hands events to the real-time transport through Redis pub/sub. Socket
// servers subscribe to board:{id} and card:{id} channels and forward to their rooms.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) BoardChannel(boardID int64) string {
	return fmt.Sprintf("%sboard:%d", p.prefix, boardID)
}

func (p *RedisPublisher) CardChannel(cardID int64) string {
	return fmt.Sprintf("%scard:%d", p.prefix, cardID)
}

// Channels lists the rooms an event is delivered to: the board always, the card for card events.
func (p *RedisPublisher) Channels(ev events.Event) []string {
	meta := ev.Meta()
	out := []string{p.BoardChannel(meta.BoardID)}
	if meta.CardID > 0 {
		out = append(out, p.CardChannel(meta.CardID))
	}
	return out
}

func (p *RedisPublisher) Publish(ctx context.Context, ev events.Event) error {
	body, err := json.Marshal(Envelope{Event: ev.Topic(), Data: ev})
	if err != nil {
		return gerrors.Wrap(err, "failed to encode envelope")
	}

	pipe := p.client.Pipeline()
	for _, ch := range p.Channels(ev) {
		pipe.Publish(ctx, ch, body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return gerrors.Wrapf(err, "failed to publish %s", ev.Topic())
	}
	return nil
}
