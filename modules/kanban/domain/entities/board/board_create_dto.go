package board

import (
	"strings"

	"github.com/iota-uz/kanban/pkg/constants"
	"github.com/iota-uz/kanban/pkg/serrors"
)

type CreateDTO struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Name = strings.TrimSpace(d.Name)
	if err := constants.Validate.Struct(d); err != nil {
		return serrors.ProcessValidatorErrors(err), false
	}
	return nil, true
}
