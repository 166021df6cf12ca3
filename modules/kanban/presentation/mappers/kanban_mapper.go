package mappers

import (
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/presentation/viewmodels"
)

func BoardToViewModel(b board.Board) viewmodels.Board {
	return viewmodels.Board{
		ID:        b.ID(),
		Name:      b.Name(),
		OwnerID:   b.OwnerID(),
		CreatedAt: b.CreatedAt().UTC(),
		UpdatedAt: b.UpdatedAt().UTC(),
	}
}

func ListToViewModel(l list.List) viewmodels.List {
	return viewmodels.List{
		ID:        l.ID(),
		BoardID:   l.BoardID(),
		Title:     l.Title(),
		Position:  l.Position(),
		CreatedAt: l.CreatedAt().UTC(),
		UpdatedAt: l.UpdatedAt().UTC(),
	}
}

func ListsToViewModels(lists []list.List) []viewmodels.List {
	out := make([]viewmodels.List, 0, len(lists))
	for _, l := range lists {
		out = append(out, ListToViewModel(l))
	}
	return out
}

func CardToViewModel(c card.Card) viewmodels.Card {
	return viewmodels.Card{
		ID:          c.ID(),
		ListID:      c.ListID(),
		Title:       c.Title(),
		Description: c.Description(),
		Position:    c.Position(),
		CreatedAt:   c.CreatedAt().UTC(),
		UpdatedAt:   c.UpdatedAt().UTC(),
	}
}

func CardsToViewModels(cards []card.Card) []viewmodels.Card {
	out := make([]viewmodels.Card, 0, len(cards))
	for _, c := range cards {
		out = append(out, CardToViewModel(c))
	}
	return out
}
