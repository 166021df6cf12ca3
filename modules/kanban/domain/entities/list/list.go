package list

import (
	"strings"
	"time"
)

type List struct {
	id        int64
	boardID   int64
	title     string
	position  float64
	createdAt time.Time
	updatedAt time.Time
}

func New(boardID int64, title string, position float64) List {
	return List{
		boardID:  boardID,
		title:    strings.TrimSpace(title),
		position: position,
	}
}

func Hydrate(id, boardID int64, title string, position float64, createdAt, updatedAt time.Time) List {
	return List{
		id:        id,
		boardID:   boardID,
		title:     title,
		position:  position,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (l List) ID() int64            { return l.id }
func (l List) BoardID() int64       { return l.boardID }
func (l List) Title() string        { return l.title }
func (l List) Position() float64    { return l.position }
func (l List) CreatedAt() time.Time { return l.createdAt }
func (l List) UpdatedAt() time.Time { return l.updatedAt }
