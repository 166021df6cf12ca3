package services

import (
	"context"
	"slices"
	"strings"

	"github.com/iota-uz/kanban/pkg/composables"
	"github.com/iota-uz/kanban/pkg/serrors"
)

// finish classifies err, records the operation outcome and logs internal failures.
func finish(ctx context.Context, entity, op string, err error) error {
	err = toServiceError(err)
	recordOperation(entity, op, err)
	if svcErr, ok := AsServiceError(err); ok && svcErr.Kind == KindInternal {
		composables.UseLogger(ctx).
			WithError(svcErr.Cause).
			WithField("entity", entity).
			WithField("op", op).
			Error("kanban: ordering operation failed")
	}
	return err
}

func validationError(errs serrors.ValidationErrors) *ServiceError {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return InvalidRequest(strings.Join(parts, "; "), nil)
}
