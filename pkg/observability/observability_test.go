package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"ERROR", logrus.ErrorLevel},
		{"verbose", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.in), tc.in)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry, nil)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/groups", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/groups", "201"))
	assert.Equal(t, float64(1), count)
}

func TestNewMetricsDroppedRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	dropped := 3.0
	metrics := NewMetrics(registry, func() float64 { return dropped })

	require.NotNil(t, metrics.ActivityRecordsDropped)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActivityRecordsDropped))
}

func TestHealthChecker(t *testing.T) {
	t.Run("liveness always reports healthy", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		checker := NewHealthChecker(db, nil)
		rec := httptest.NewRecorder()
		checker.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness reports healthy when the database answers", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		checker := NewHealthChecker(db, nil)
		rec := httptest.NewRecorder()
		checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
	})

	t.Run("readiness reports unhealthy when the database is down", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(assert.AnError)

		checker := NewHealthChecker(db, nil)
		rec := httptest.NewRecorder()
		checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("redis outage degrades but stays ready", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		mr.Close()

		checker := NewHealthChecker(db, client)
		status := checker.Check(context.Background())

		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
	})
}

func TestInitTracingDisabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), OTelConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, ShutdownTracing(context.Background(), nil))
}
