// Package events defines the order-changed notifications emitted after ordering transactions.
// Field names are part of the wire contract consumed by real-time clients.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TopicListCreated    = "list:created"
	TopicListMoved      = "list:moved"
	TopicCardCreated    = "card:created"
	TopicCardMoved      = "card:moved"
	TopicBoardRebalance = "board:rebalanced"
)

// Meta scopes an event for delivery. CardID is zero for board-level events.
type Meta struct {
	EventID uuid.UUID
	BoardID int64
	CardID  int64
}

type Event interface {
	Topic() string
	Meta() Meta
}

type ListCreated struct {
	EventID   uuid.UUID `json:"eventId"`
	BoardID   int64     `json:"boardId"`
	ListID    int64     `json:"listId"`
	Title     string    `json:"title"`
	Position  float64   `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *ListCreated) Topic() string { return TopicListCreated }
func (e *ListCreated) Meta() Meta    { return Meta{EventID: e.EventID, BoardID: e.BoardID} }

type ListMoved struct {
	EventID    uuid.UUID `json:"eventId"`
	BoardID    int64     `json:"boardId"`
	ListID     int64     `json:"listId"`
	Position   float64   `json:"position"`
	PrevListID *int64    `json:"prevListId"`
	NextListID *int64    `json:"nextListId"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *ListMoved) Topic() string { return TopicListMoved }
func (e *ListMoved) Meta() Meta    { return Meta{EventID: e.EventID, BoardID: e.BoardID} }

type CardCreated struct {
	EventID   uuid.UUID `json:"eventId"`
	BoardID   int64     `json:"boardId"`
	ListID    int64     `json:"listId"`
	CardID    int64     `json:"cardId"`
	Title     string    `json:"title"`
	Position  float64   `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *CardCreated) Topic() string { return TopicCardCreated }
func (e *CardCreated) Meta() Meta {
	return Meta{EventID: e.EventID, BoardID: e.BoardID, CardID: e.CardID}
}

type CardMoved struct {
	EventID      uuid.UUID `json:"eventId"`
	BoardID      int64     `json:"boardId"`
	CardID       int64     `json:"cardId"`
	FromListID   int64     `json:"fromListId"`
	TargetListID int64     `json:"targetListId"`
	Position     float64   `json:"position"`
	PrevCardID   *int64    `json:"prevCardId"`
	NextCardID   *int64    `json:"nextCardId"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *CardMoved) Topic() string { return TopicCardMoved }
func (e *CardMoved) Meta() Meta {
	return Meta{EventID: e.EventID, BoardID: e.BoardID, CardID: e.CardID}
}

type BoardRebalanced struct {
	EventID   uuid.UUID `json:"eventId"`
	BoardID   int64     `json:"boardId"`
	Lists     int64     `json:"lists"`
	Cards     int64     `json:"cards"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *BoardRebalanced) Topic() string { return TopicBoardRebalance }
func (e *BoardRebalanced) Meta() Meta    { return Meta{EventID: e.EventID, BoardID: e.BoardID} }

// Decode restores a typed event from its topic and JSON payload, as stored in the outbox.
func Decode(topic string, payload []byte) (Event, error) {
	var ev Event
	switch topic {
	case TopicListCreated:
		ev = &ListCreated{}
	case TopicListMoved:
		ev = &ListMoved{}
	case TopicCardCreated:
		ev = &CardCreated{}
	case TopicCardMoved:
		ev = &CardMoved{}
	case TopicBoardRebalance:
		ev = &BoardRebalanced{}
	default:
		return nil, fmt.Errorf("unknown event topic %q", topic)
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", topic, err)
	}
	return ev, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func NewListCreated(boardID, listID int64, title string, position float64) *ListCreated {
	return &ListCreated{
		EventID:   uuid.New(),
		BoardID:   boardID,
		ListID:    listID,
		Title:     title,
		Position:  position,
		Timestamp: now(),
	}
}

func NewListMoved(boardID, listID int64, position float64, prev, next *int64) *ListMoved {
	return &ListMoved{
		EventID:    uuid.New(),
		BoardID:    boardID,
		ListID:     listID,
		Position:   position,
		PrevListID: prev,
		NextListID: next,
		Timestamp:  now(),
	}
}

func NewCardCreated(boardID, listID, cardID int64, title string, position float64) *CardCreated {
	return &CardCreated{
		EventID:   uuid.New(),
		BoardID:   boardID,
		ListID:    listID,
		CardID:    cardID,
		Title:     title,
		Position:  position,
		Timestamp: now(),
	}
}

func NewCardMoved(boardID, cardID, fromListID, targetListID int64, position float64, prev, next *int64) *CardMoved {
	return &CardMoved{
		EventID:      uuid.New(),
		BoardID:      boardID,
		CardID:       cardID,
		FromListID:   fromListID,
		TargetListID: targetListID,
		Position:     position,
		PrevCardID:   prev,
		NextCardID:   next,
		Timestamp:    now(),
	}
}

func NewBoardRebalanced(boardID, lists, cards int64) *BoardRebalanced {
	return &BoardRebalanced{
		EventID:   uuid.New(),
		BoardID:   boardID,
		Lists:     lists,
		Cards:     cards,
		Timestamp: now(),
	}
}
