package serrors

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `validate:"required,max=5"`
	Ref   *int64 `validate:"omitempty,gt=0"`
	Kind  string `validate:"oneof=a b"`
}

func TestProcessValidatorErrors(t *testing.T) {
	v := validator.New()
	zero := int64(0)

	errs := ProcessValidatorErrors(v.Struct(sample{Ref: &zero, Kind: "c"}))
	require.Equal(t, "Title is required", errs["Title"])
	require.Equal(t, "Ref must be greater than 0", errs["Ref"])
	require.Equal(t, `Kind failed the "oneof" rule`, errs["Kind"])

	errs = ProcessValidatorErrors(v.Struct(sample{Title: "too long", Kind: "a"}))
	require.Equal(t, ValidationErrors{"Title": "Title must be at most 5 characters"}, errs)

	require.Empty(t, ProcessValidatorErrors(nil))
	require.Equal(t, ValidationErrors{"_": "boom"}, ProcessValidatorErrors(errors.New("boom")))
}

func TestBaseError_Is(t *testing.T) {
	a := NewError("KANBAN_X", "x", "")
	b := NewError("KANBAN_X", "another message", "")
	c := NewError("KANBAN_Y", "x", "")

	require.ErrorIs(t, a, b)
	require.NotErrorIs(t, a, c)
	require.Equal(t, "KANBAN_X: x", a.String())
}
