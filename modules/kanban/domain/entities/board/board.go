package board

import (
	"strings"
	"time"
)

type Board struct {
	id        int64
	name      string
	ownerID   string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func New(name, ownerID string) Board {
	return Board{
		name:    strings.TrimSpace(name),
		ownerID: strings.TrimSpace(ownerID),
	}
}

func Hydrate(id int64, name, ownerID string, createdAt, updatedAt time.Time, deletedAt *time.Time) Board {
	return Board{
		id:        id,
		name:      name,
		ownerID:   ownerID,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (b Board) ID() int64             { return b.id }
func (b Board) Name() string          { return b.name }
func (b Board) OwnerID() string       { return b.ownerID }
func (b Board) CreatedAt() time.Time  { return b.createdAt }
func (b Board) UpdatedAt() time.Time  { return b.updatedAt }
func (b Board) DeletedAt() *time.Time { return b.deletedAt }
func (b Board) IsDeleted() bool       { return b.deletedAt != nil }
