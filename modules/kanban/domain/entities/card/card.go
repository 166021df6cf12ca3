package card

import (
	"strings"
	"time"
)

type Card struct {
	id          int64
	listID      int64
	title       string
	description *string
	position    float64
	createdAt   time.Time
	updatedAt   time.Time
}

func New(listID int64, title string, description *string, position float64) Card {
	return Card{
		listID:      listID,
		title:       strings.TrimSpace(title),
		description: description,
		position:    position,
	}
}

func Hydrate(id, listID int64, title string, description *string, position float64, createdAt, updatedAt time.Time) Card {
	return Card{
		id:          id,
		listID:      listID,
		title:       title,
		description: description,
		position:    position,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (c Card) ID() int64            { return c.id }
func (c Card) ListID() int64        { return c.listID }
func (c Card) Title() string        { return c.title }
func (c Card) Description() *string { return c.description }
func (c Card) Position() float64    { return c.position }
func (c Card) CreatedAt() time.Time { return c.createdAt }
func (c Card) UpdatedAt() time.Time { return c.updatedAt }
