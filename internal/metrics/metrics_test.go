package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("bot")

	m.MessageHandled(domain.FlowNone)
	m.MessageHandled(domain.FlowRepair)
	m.MessageHandled(domain.FlowRepair)
	m.FlowCompleted(domain.FlowAppointment)
	m.SideEffectFailed("notify")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("menu")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("reparacion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completed.WithLabelValues("cita")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("notify")))
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New("bot")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requests, "bot_http_request_duration_seconds"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `bot_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`)
}
