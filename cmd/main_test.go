package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/bot"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/config"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/metrics"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/notify"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, env map[string]string) (*httptest.Server, bot.Store) {
	t.Helper()

	cfg := testConfig(t, env)
	store, closeStore, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore() })

	m := metrics.New("test")
	svc := bot.NewService(store, nil, notify.Nop{}, cfg.Catalog, zerolog.Nop(), bot.WithObserver(m))
	srv := httptest.NewServer(newRouter(cfg, svc, store, m, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, store
}

func postMessage(t *testing.T, base, from, body string) *http.Response {
	t.Helper()
	resp, err := http.PostForm(base+"/whatsapp", url.Values{"From": {from}, "Body": {body}})
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"STORE_BACKEND": "memory"})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", readBody(t, resp))
}

func TestRouter_ConversationAndAdmin(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"STORE_BACKEND": "memory", "ADMIN_TOKEN": "t0k"})

	for _, msg := range []string{"hola", "5", "1", "Ana", "mismo", "mañana"} {
		resp := postMessage(t, srv.URL, "whatsapp:+50670002222", msg)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = readBody(t, resp)
	}
	resp := postMessage(t, srv.URL, "whatsapp:+50670002222", "9:00")
	assert.Contains(t, readBody(t, resp), "Cita agendada")

	resp, err := http.Get(srv.URL + "/admin/appointments")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = readBody(t, resp)

	resp, err = http.Get(srv.URL + "/admin/appointments?token=t0k")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"branchId":"sjo-centro"`)
	assert.Contains(t, body, `"phone":"+50670002222"`)
}

func TestRouter_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"STORE_BACKEND": "memory"})

	resp := postMessage(t, srv.URL, "whatsapp:+1", "hola")
	_ = readBody(t, resp)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, `test_messages_total{flow="menu"} 1`)
	assert.Contains(t, body, `route="/whatsapp"`)
}

func TestRouter_RateLimit(t *testing.T) {
	srv, store := newTestServer(t, map[string]string{"STORE_BACKEND": "memory", "RATE_LIMIT_PER_MIN": "1"})
	ctx := context.Background()
	const sender = "whatsapp:+9"

	// ровно webhookBurst сообщений проходят, последнее открывает поток ремонта
	allowed := []string{"hola", "menu", "menu", "menu", "1"}
	require.Len(t, allowed, webhookBurst)
	for _, msg := range allowed {
		resp := postMessage(t, srv.URL, sender, msg)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, readBody(t, resp), rateLimitedText)
	}

	resp := postMessage(t, srv.URL, sender, "la pantalla no enciende")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	body := readBody(t, resp)
	assert.Contains(t, body, "<Message>"+rateLimitedText+"</Message>")

	// отклонённое сообщение не дошло до движка
	sess, err := store.GetSession(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRepairProblem, sess.State)
	assert.Empty(t, sess.Answer("problem"))

	// другой номер не задет
	resp = postMessage(t, srv.URL, "whatsapp:+8", "hola")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp), rateLimitedText)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	cases := map[string]map[string]string{
		"memory": {"STORE_BACKEND": "memory"},
		"file":   {"STORE_BACKEND": "file", "DB_FILE": filepath.Join(dir, "db.json")},
		"sqlite": {"STORE_BACKEND": "sqlite", "SQLITE_PATH": filepath.Join(dir, "bot.db")},
		"redis":  {"STORE_BACKEND": "redis", "REDIS_ADDR": mr.Addr()},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, env)
			store, closeStore, err := openStore(context.Background(), cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeStore()) }()

			svc := bot.NewService(store, nil, nil, cfg.Catalog, zerolog.Nop())
			reply := svc.HandleMessage(context.Background(), "whatsapp:+1", "hola")
			assert.True(t, strings.Contains(reply, "Menú Principal"))

			sess, err := store.GetSession(context.Background(), "whatsapp:+1")
			require.NoError(t, err)
			assert.True(t, sess.Idle())
		})
	}
}

func TestOpenStore_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t, map[string]string{"STORE_BACKEND": "redis", "REDIS_ADDR": "127.0.0.1:1"})
	_, _, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewNotifier_NoChannels(t *testing.T) {
	cfg := testConfig(t, map[string]string{"STORE_BACKEND": "memory"})
	assert.IsType(t, notify.Nop{}, newNotifier(cfg, zerolog.Nop()))

	cfg = testConfig(t, map[string]string{
		"STORE_BACKEND":      "memory",
		"TWILIO_ACCOUNT_SID": "AC1",
		"TWILIO_AUTH_TOKEN":  "tok",
		"TWILIO_FROM":        "+100",
		"OPERATOR_WHATSAPP":  "+200",
	})
	n, ok := newNotifier(cfg, zerolog.Nop()).(notify.Multi)
	require.True(t, ok)
	assert.Len(t, n, 1)
}

func TestRouter_HealthChecksSQLStore(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"STORE_BACKEND": "sqlite",
		"SQLITE_PATH":   filepath.Join(t.TempDir(), "bot.db"),
	})
	store, closeStore, err := openStore(context.Background(), cfg)
	require.NoError(t, err)

	svc := bot.NewService(store, nil, nil, cfg.Catalog, zerolog.Nop())
	h := newRouter(cfg, svc, store, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, closeStore())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
