package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fixit/internal/maintenance"
	"fixit/internal/models"
	"fixit/internal/service"
	"fixit/internal/utils"
)

// PublicHTTP serves link bearers. Nothing here reads the session.
type PublicHTTP struct {
	svc *service.MaintenanceService
}

func NewPublicHTTP(svc *service.MaintenanceService) *PublicHTTP {
	return &PublicHTTP{svc: svc}
}

// NoStore keeps tokenized pages out of shared caches and referrers.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// GET /public/requests/{token}
func (h *PublicHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ops, err := h.svc.ResolvePublicLink(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, struct {
			Request      *models.Request   `json:"request"`
			Capabilities maintenance.OpSet `json:"capabilities"`
		}{req, ops})
	}
}

// POST /public/requests/{token}/comments
func (h *PublicHTTP) AddComment() http.HandlerFunc {
	type inDTO struct {
		AuthorName string `json:"authorName"`
		Message    string `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		cm, err := h.svc.PublicComment(r.Context(), chi.URLParam(r, "token"), in.AuthorName, in.Message)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, cm)
	}
}

// POST /public/requests/{token}/media
func (h *PublicHTTP) AddMedia() http.HandlerFunc {
	type inDTO struct {
		UploaderName string `json:"uploaderName"`
		mediaDTO
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		m, err := h.svc.PublicAddMedia(r.Context(), chi.URLParam(r, "token"), in.UploaderName, in.model())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, m)
	}
}
