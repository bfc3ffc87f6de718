package handlers

import (
	"errors"
	"net/http"
	"time"

	"fixit/internal/middleware"
	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/service"
	"fixit/internal/utils"
)

type AuthHTTP struct {
	svc    *service.AuthService
	users  repository.UserRepository
	secure bool
}

// NewAuthHTTP builds the session endpoints. secure marks the cookie
// HTTPS-only and should be set everywhere but local dev.
func NewAuthHTTP(s *service.AuthService, users repository.UserRepository, secure bool) *AuthHTTP {
	return &AuthHTTP{svc: s, users: users, secure: secure}
}

func profile(u *models.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

func (h *AuthHTTP) Register() http.HandlerFunc {
	type inDTO struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		u, err := h.svc.Register(r.Context(), in.Email, in.Name, in.Password)
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			utils.Error(w, http.StatusConflict, "email_taken")
			return
		case errors.Is(err, service.ErrInvalidUser):
			utils.Error(w, http.StatusBadRequest, "invalid_input")
			return
		case err != nil:
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, profile(u))
	}
}

func (h *AuthHTTP) Login() http.HandlerFunc {
	type inDTO struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}

		token, u, err := h.svc.Login(r.Context(), in.Email, in.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			utils.Error(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			writeErr(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   h.secure,
			Expires:  time.Now().Add(service.SessionTTL),
		})
		utils.JSON(w, http.StatusOK, profile(u))
	}
}

func (h *AuthHTTP) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   h.secure,
			MaxAge:   -1,              // expire immediately
			Expires:  time.Unix(0, 0), // for older browsers
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *AuthHTTP) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetString(r.Context(), middleware.CtxUserID)
		if !ok || uid == "" {
			utils.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		u, err := h.users.GetByID(r.Context(), uid)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if u == nil {
			utils.Error(w, http.StatusNotFound, "not_found")
			return
		}
		utils.JSON(w, http.StatusOK, profile(u))
	}
}
