package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"clinic-appointments-api/internal/middleware"
)

// Routes mounts the full API. Login and registration share the per-IP rate
// limiter; appointment and user routes are public, only logout requires a
// bearer token.
func (h *Handler) Routes(rl *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS)

	r.Get("/health", h.Health)

	r.With(middleware.RateLimit(rl)).Post("/login", h.Login)
	r.With(middleware.RateLimit(rl)).Post("/users", h.Register)
	r.Get("/users", h.ListUsers)

	r.Post("/appointments", h.BookAppointment)
	r.Get("/appointments/by-patient/{patientId}", h.ListPatientAppointments)
	r.Put("/appointments/{id}/cancel", h.CancelAppointment)

	r.Post("/auth/refresh", h.Refresh)
	r.With(middleware.RequireAuth(h.cfg.JWTSecret)).Post("/auth/logout", h.Logout)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
