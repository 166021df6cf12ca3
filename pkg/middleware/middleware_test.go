package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/pkg/composables"
	"github.com/iota-uz/kanban/pkg/constants"
	"github.com/iota-uz/kanban/pkg/httpapi"
)

func testLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.InfoLevel)
	return log, buf
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	log, buf := testLogger()
	var seen string
	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(constants.RequestIDKey).(string)
		composables.UseLogger(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boards/1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "req-42", seen)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
	require.Contains(t, buf.String(), "inside handler")
	require.Contains(t, buf.String(), "request completed")
}

func TestWithLogger_RecoversPanicAsJSON(t *testing.T) {
	log, buf := testLogger()
	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-panic")
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, req) })

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "KANBAN_INTERNAL", env.Code)
	require.Equal(t, "req-panic", env.Meta["request_id"])
	require.Contains(t, buf.String(), "panic recovered")
}

func TestProvideActor(t *testing.T) {
	var actor string
	var err error
	h := ProvideActor("X-User-ID")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err = composables.UseActor(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", " user-1 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.Equal(t, "user-1", actor)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, composables.ErrNoActor)
}

func TestRequestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := RequestTimeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		RequestsPerPeriod: 2,
		Period:            time.Minute,
		Store:             NewMemoryStore(),
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, "KANBAN_RATE_LIMITED", env.Code)
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_SkipBypassesTheLimiter(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		RequestsPerPeriod: 1,
		Period:            time.Minute,
		Store:             NewMemoryStore(),
		Skip:              func(r *http.Request) bool { return r.URL.Path == "/health" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve("/health"))
	}
	require.Equal(t, http.StatusOK, serve("/api/v1/boards"))
	require.Equal(t, http.StatusTooManyRequests, serve("/api/v1/boards"))
}

func TestCors_AllowsConfiguredOrigin(t *testing.T) {
	h := Cors("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
