package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/kanban/pkg/application"
)

type healthStatus string

const (
	healthStatusHealthy  healthStatus = "healthy"
	healthStatusDegraded healthStatus = "degraded"
	healthStatusDown     healthStatus = "down"
)

type healthResponse struct {
	Status    healthStatus               `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]componentHealth `json:"checks"`
}

type componentHealth struct {
	Status       healthStatus   `json:"status"`
	ResponseTime string         `json:"responseTime,omitempty"`
	Error        string         `json:"error,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

const (
	outboxPendingDegradedThreshold = int64(1000)
	outboxOldestAvailableDegraded  = 5 * time.Minute
	dbDegradedLatency              = 100 * time.Millisecond
	healthCheckTimeout             = 5 * time.Second
)

type HealthControllerOptions struct {
	// InMemory skips the database check.
	InMemory bool
	// OutboxTable enables the outbox backlog check when set.
	OutboxTable pgx.Identifier
}

type HealthController struct {
	app  application.Application
	opts HealthControllerOptions
}

func NewHealthController(app application.Application, opts HealthControllerOptions) application.Controller {
	return &HealthController{app: app, opts: opts}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet)
}

// Get answers 200 while healthy or degraded and 503 once any check is down.
func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	response := c.check(r.Context())
	status := http.StatusOK
	if response.Status == healthStatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (c *HealthController) check(ctx context.Context) healthResponse {
	checks := make(map[string]componentHealth)
	overall := healthStatusHealthy

	if c.opts.InMemory {
		checks["store"] = componentHealth{Status: healthStatusHealthy, Details: map[string]any{"backend": "memory"}}
	} else {
		db := c.checkDatabase(ctx)
		checks["database"] = db
		overall = mergeHealthStatus(overall, db.Status)
	}

	if len(c.opts.OutboxTable) > 0 {
		ob := c.checkOutbox(ctx)
		checks["outbox"] = ob
		overall = mergeHealthStatus(overall, ob.Status)
	}

	return healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

func mergeHealthStatus(current, next healthStatus) healthStatus {
	if next == healthStatusDown {
		return healthStatusDown
	}
	if next == healthStatusDegraded && current == healthStatusHealthy {
		return healthStatusDegraded
	}
	return current
}

func (c *HealthController) checkDatabase(ctx context.Context) componentHealth {
	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	db := c.app.DB()
	if db == nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: time.Since(start).String(),
			Error:        "database connection pool not available",
		}
	}

	var result int
	err := db.QueryRow(timeoutCtx, "SELECT 1").Scan(&result)
	responseTime := time.Since(start)
	if err != nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: responseTime.String(),
			Error:        fmt.Sprintf("database query failed: %v", err),
		}
	}

	status := healthStatusHealthy
	if responseTime > dbDegradedLatency {
		status = healthStatusDegraded
	}
	return componentHealth{Status: status, ResponseTime: responseTime.String()}
}

func (c *HealthController) checkOutbox(ctx context.Context) componentHealth {
	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	db := c.app.DB()
	if db == nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: time.Since(start).String(),
			Error:        "database connection pool not available",
		}
	}

	var pending, locked int64
	var oldestAvailable *time.Time
	q := fmt.Sprintf(
		`SELECT count(*), count(*) FILTER (WHERE locked_at IS NOT NULL), min(available_at) FROM %s WHERE published_at IS NULL`,
		c.opts.OutboxTable.Sanitize(),
	)
	if err := db.QueryRow(timeoutCtx, q).Scan(&pending, &locked, &oldestAvailable); err != nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: time.Since(start).String(),
			Error:        fmt.Sprintf("outbox backlog query failed: %v", err),
		}
	}

	status := healthStatusHealthy
	details := map[string]any{
		"pending": pending,
		"locked":  locked,
	}
	if oldestAvailable != nil {
		age := time.Since(*oldestAvailable)
		details["oldest_available_age"] = age.Truncate(time.Second).String()
		if age > outboxOldestAvailableDegraded {
			status = healthStatusDegraded
		}
	}
	if pending > outboxPendingDegradedThreshold {
		status = healthStatusDegraded
	}

	return componentHealth{
		Status:       status,
		ResponseTime: time.Since(start).String(),
		Details:      details,
	}
}
