package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tuitron-api/internal/service"
)

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)

	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
}

func TestPrometheusServesRegistry(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordReconcile("created")
	h := NewMetricsHandler(metrics, nil)
	c, w := newTestContext(http.MethodGet, "/metrics", nil)

	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `payment_reconciliations_total{outcome="created"} 1`)

	c, w = newTestContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
