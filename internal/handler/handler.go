package handler

import (
	"github.com/go-playground/validator/v10"

	"clinic-appointments-api/internal/config"
	"clinic-appointments-api/internal/store"
)

type Handler struct {
	store    *store.Store
	cfg      *config.Config
	validate *validator.Validate
}

func New(st *store.Store, cfg *config.Config) *Handler {
	return &Handler{store: st, cfg: cfg, validate: validator.New()}
}
