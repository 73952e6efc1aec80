package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker serves liveness and readiness probes. Redis is optional;
// when absent the check covers only the database.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a health checker. redisClient may be nil.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient}
}

// HealthStatus is the probe payload.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus reports the health of a single dependency.
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Liveness always reports healthy while the process is up.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthStatus{Status: StatusHealthy, Timestamp: time.Now()})
}

// Readiness checks every dependency. Unhealthy maps to 503, degraded (Redis
// down but database up) stays 200 because the API fails open without Redis.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check pings each dependency and aggregates the result.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		status.Status = StatusUnhealthy
		status.Dependencies["database"] = DependencyStatus{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		}
	} else {
		status.Dependencies["database"] = DependencyStatus{
			Status:    StatusHealthy,
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}

	if h.redis != nil {
		start = time.Now()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			if status.Status == StatusHealthy {
				status.Status = StatusDegraded
			}
			status.Dependencies["redis"] = DependencyStatus{
				Status:    StatusUnhealthy,
				Message:   err.Error(),
				LatencyMS: time.Since(start).Milliseconds(),
			}
		} else {
			status.Dependencies["redis"] = DependencyStatus{
				Status:    StatusHealthy,
				LatencyMS: time.Since(start).Milliseconds(),
			}
		}
	}

	return status
}
