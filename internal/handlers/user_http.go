package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fixit/internal/middleware"
	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/service"
	"fixit/internal/utils"
)

type UserHTTP struct {
	svc   *service.MaintenanceService
	users repository.UserRepository
}

func NewUserHTTP(svc *service.MaintenanceService, users repository.UserRepository) *UserHTTP {
	return &UserHTTP{svc: svc, users: users}
}

// GET /api/assignees?kind=&q=&limit=
func (h *UserHTTP) Assignees() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		kind := models.AssigneeKind(strings.TrimSpace(qv.Get("kind")))
		items, err := h.svc.Assignees(r.Context(), middleware.CallerFrom(r.Context()), kind, strings.TrimSpace(qv.Get("q")), utils.QueryInt(qv, "limit", 50))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if items == nil {
			items = []service.AssigneeOption{}
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
	}
}

// GET /api/users/{id}
func (h *UserHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
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
