package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/composables"
	"github.com/iota-uz/kanban/pkg/httpapi"
)

const maxBodyBytes = 1 << 20

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	_ = httpapi.WriteRequestError(w, requestID, status, code, message)
}

func writeServiceError(w http.ResponseWriter, requestID string, err error) {
	if svcErr, ok := services.AsServiceError(err); ok {
		writeAPIError(w, svcErr.Status, requestID, svcErr.Code, svcErr.Message)
		return
	}
	writeAPIError(w, http.StatusInternalServerError, requestID, services.CodeInternal, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(mux.Vars(r)[name])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.InvalidRequest(name+" must be a positive integer", err)
	}
	return id, nil
}

func actor(r *http.Request) string {
	actorID, err := composables.UseActor(r.Context())
	if err != nil {
		return ""
	}
	return actorID
}

// retryOnce repeats op once when it fails with a retryable conflict and the request is still live.
// A second conflict is reported as internal.
func retryOnce[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	out, err := op(ctx)
	if err == nil || !services.IsRetryable(err) || ctx.Err() != nil {
		return out, err
	}

	logger := composables.UseLogger(ctx).WithError(err)
	logger.Info("retrying ordering operation after conflict")

	out, err = op(ctx)
	if svcErr, ok := services.AsServiceError(err); ok && svcErr.Kind == services.KindConflict {
		logger.WithField("second-error", err.Error()).Warn("ordering operation conflicted twice")
		var zero T
		return zero, services.Internal(err)
	}
	return out, err
}
