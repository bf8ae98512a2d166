package admin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/bot"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

type Handler struct {
	store bot.Store
	cat   domain.Catalog
	token string
	log   zerolog.Logger
}

func NewHandler(store bot.Store, cat domain.Catalog, token string, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		cat:   cat,
		token: token,
		log:   log.With().Str("component", "admin").Logger(),
	}
}

// RequireToken: токен из X-Admin-Token или ?token=. Пустой ADMIN_TOKEN закрывает доступ полностью.
func (h *Handler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if got == "" {
			got = r.URL.Query().Get("token")
		}

		if h.token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			h.log.Warn().Str("path", r.URL.Path).Msg("unauthorized admin access")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	aps, err := h.store.ListAppointments(r.Context())
	if err != nil {
		h.fail(w, err, "list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": nonNil(aps)})
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports(r.Context())
	if err != nil {
		h.fail(w, err, "list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": nonNil(reports)})
}

// Dump: всё состояние бота: сессии, записи, заявки и каталог.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		h.fail(w, err, "list sessions")
		return
	}
	aps, err := h.store.ListAppointments(ctx)
	if err != nil {
		h.fail(w, err, "list appointments")
		return
	}
	reports, err := h.store.ListReports(ctx)
	if err != nil {
		h.fail(w, err, "list reports")
		return
	}

	bySender := make(map[string]domain.Session, len(sessions))
	for _, s := range sessions {
		bySender[s.UserID] = s
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":     bySender,
		"appointments": nonNil(aps),
		"reports":      nonNil(reports),
		"catalog":      h.cat,
	})
}

// DeleteSession сбрасывает диалог пользователя: следующее сообщение начнётся с приветствия.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.store.DeleteSession(r.Context(), userID); err != nil {
		h.fail(w, err, "delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	h.log.Error().Err(err).Fields(errs.Args(err)).Str("op", op).Msg("admin request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
