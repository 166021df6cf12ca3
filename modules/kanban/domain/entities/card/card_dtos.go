package card

import (
	"strings"

	"github.com/iota-uz/kanban/pkg/constants"
	"github.com/iota-uz/kanban/pkg/serrors"
)

type CreateDTO struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Description != nil {
		trimmed := strings.TrimSpace(*d.Description)
		if trimmed == "" {
			d.Description = nil
		} else {
			d.Description = &trimmed
		}
	}
	if err := constants.Validate.Struct(d); err != nil {
		return serrors.ProcessValidatorErrors(err), false
	}
	return nil, true
}

type MoveDTO struct {
	TargetListID *int64 `json:"targetListId" validate:"omitempty,gt=0"`
	PrevCardID   *int64 `json:"prevCardId" validate:"omitempty,gt=0"`
	NextCardID   *int64 `json:"nextCardId" validate:"omitempty,gt=0"`
}

func (d *MoveDTO) Ok() (serrors.ValidationErrors, bool) {
	if err := constants.Validate.Struct(d); err != nil {
		return serrors.ProcessValidatorErrors(err), false
	}
	return nil, true
}
