package bot

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, h *Handler, mw ...func(http.Handler) http.Handler) {
	r.With(mw...).Post("/whatsapp", h.HandleWebhook)
}
