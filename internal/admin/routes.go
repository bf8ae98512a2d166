package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Admin-Token"},
		}))
		r.Use(h.RequireToken)

		r.Get("/appointments", h.ListAppointments)
		r.Get("/reports", h.ListReports)
		r.Get("/db", h.Dump)
		r.Delete("/sessions/{userID}", h.DeleteSession)
	})
}
