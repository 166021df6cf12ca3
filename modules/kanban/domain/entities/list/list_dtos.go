package list

import (
	"strings"

	"github.com/iota-uz/kanban/pkg/constants"
	"github.com/iota-uz/kanban/pkg/serrors"
)

type CreateDTO struct {
	Title string `json:"title" validate:"required,max=255"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Title = strings.TrimSpace(d.Title)
	if err := constants.Validate.Struct(d); err != nil {
		return serrors.ProcessValidatorErrors(err), false
	}
	return nil, true
}

type MoveDTO struct {
	PrevListID *int64 `json:"prevListId" validate:"omitempty,gt=0"`
	NextListID *int64 `json:"nextListId" validate:"omitempty,gt=0"`
}

func (d *MoveDTO) Ok() (serrors.ValidationErrors, bool) {
	if err := constants.Validate.Struct(d); err != nil {
		return serrors.ProcessValidatorErrors(err), false
	}
	return nil, true
}
