package viewmodels

import "time"

type Board struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type List struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"boardId"`
	Title     string    `json:"title"`
	Position  float64   `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Card struct {
	ID          int64     `json:"id"`
	ListID      int64     `json:"listId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Position    float64   `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ListCollection struct {
	BoardID int64  `json:"boardId"`
	Lists   []List `json:"lists"`
}

type CardCollection struct {
	ListID int64  `json:"listId"`
	Cards  []Card `json:"cards"`
}
