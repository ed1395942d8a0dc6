package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clinic-appointments-api/internal/apperror"
	"clinic-appointments-api/internal/auth"
	"clinic-appointments-api/internal/middleware"
	"clinic-appointments-api/internal/model"
	"clinic-appointments-api/internal/store"
)

type registerRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Secret string `json:"secret" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

type loginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Message      string           `json:"message"`
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
}

// Register handles POST /users.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.Validation("name, email, secret and role are required"))
		return
	}

	hash, err := auth.HashSecret(req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}

	u := &model.User{Name: req.Name, Email: req.Email, Secret: hash, Role: req.Role}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, apperror.Conflict("email already registered"))
			return
		}
		writeError(w, err)
		return
	}

	tok, err := auth.MakeToken(u.ID, u.Role, h.cfg.JWTSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	rawRefresh, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), u.ID, tokenHash, time.Now().Add(h.cfg.RefreshTokenTTL)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message:      "user registered",
		User:         u.Public(),
		AccessToken:  tok,
		RefreshToken: rawRefresh,
	})
}

// Login handles POST /login. Unknown email and wrong secret produce the
// same 401 so the caller cannot tell which field was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Secret == "" {
		writeError(w, apperror.Validation("email and secret are required"))
		return
	}

	u, err := h.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperror.Auth("invalid credentials"))
			return
		}
		writeError(w, err)
		return
	}
	if !auth.CheckSecret(u.Secret, req.Secret) {
		writeError(w, apperror.Auth("invalid credentials"))
		return
	}

	access, err := auth.MakeToken(u.ID, u.Role, h.cfg.JWTSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	rawRefresh, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), u.ID, tokenHash, time.Now().Add(h.cfg.RefreshTokenTTL)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message:      "login successful",
		User:         u.Public(),
		AccessToken:  access,
		RefreshToken: rawRefresh,
	})
}

// Refresh handles POST /auth/refresh: rotates the presented refresh token
// and issues a fresh access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, apperror.Validation("refreshToken is required"))
		return
	}

	rt, err := h.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperror.Auth("invalid or expired refresh token"))
			return
		}
		writeError(w, err)
		return
	}
	if rt.Revoked || time.Now().After(rt.ExpiresAt) {
		writeError(w, apperror.Auth("invalid or expired refresh token"))
		return
	}

	u, err := h.store.UserByID(r.Context(), rt.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		writeError(w, err)
		return
	}
	newID := uuid.New().String()
	if err := h.store.RotateRefreshToken(r.Context(), rt.ID, newID, rt.UserID, newHash, time.Now().Add(h.cfg.RefreshTokenTTL)); err != nil {
		// a concurrent rotation won the race; treat the token as spent
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperror.Auth("invalid or expired refresh token"))
			return
		}
		writeError(w, err)
		return
	}

	access, err := auth.MakeToken(rt.UserID, u.Role, h.cfg.JWTSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  access,
		"refreshToken": newRaw,
	})
}

// Logout handles POST /auth/logout (bearer token required) and revokes
// every live refresh token of the authenticated user.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperror.Auth("unauthorized"))
		return
	}
	if err := h.store.RevokeAllRefreshTokens(r.Context(), uid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
