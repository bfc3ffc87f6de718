package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fixit/internal/maintenance"
	"fixit/internal/middleware"
	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/service"
	"fixit/internal/utils"
)

// RequestHTTP serves the authenticated request API.
type RequestHTTP struct {
	svc *service.MaintenanceService
}

func NewRequestHTTP(svc *service.MaintenanceService) *RequestHTTP {
	return &RequestHTTP{svc: svc}
}

type requestView struct {
	Request              *models.Request   `json:"request"`
	Capabilities         maintenance.OpSet `json:"capabilities"`
	AvailableTransitions []models.Status   `json:"availableTransitions"`
}

func (h *RequestHTTP) view(w http.ResponseWriter, r *http.Request, status int, req *models.Request) {
	c := middleware.CallerFrom(r.Context())
	transitions := maintenance.AvailableTransitions(c, req)
	if transitions == nil {
		transitions = []models.Status{}
	}
	setETag(w, req.Version)
	utils.JSON(w, status, requestView{
		Request:              req,
		Capabilities:         maintenance.Capabilities(c, req),
		AvailableTransitions: transitions,
	})
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

// GET /api/requests?q=&status=&priority=&category=&assignee=&limit=&offset=&sort=&order=
func (h *RequestHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		f := repository.RequestFilter{
			Q:          qv.Get("q"),
			Status:     qv.Get("status"),
			Priority:   qv.Get("priority"),
			Category:   qv.Get("category"),
			AssignedTo: qv.Get("assignee"),
			Limit:      utils.QueryInt(qv, "limit", 20),
			Offset:     utils.QueryInt(qv, "offset", 0),
			Sort:       qv.Get("sort"),
			Order:      qv.Get("order"),
		}
		items, total, err := h.svc.List(r.Context(), middleware.CallerFrom(r.Context()), f)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if items == nil {
			items = []models.Request{}
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		utils.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
	}
}

// POST /api/requests
func (h *RequestHTTP) Create() http.HandlerFunc {
	type inDTO struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Priority    string `json:"priority"`
		PropertyID  string `json:"propertyId"`
		UnitID      string `json:"unitId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		req, err := h.svc.Create(r.Context(), middleware.CallerFrom(r.Context()), maintenance.CreateInput{
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Priority:    models.Priority(in.Priority),
			PropertyID:  in.PropertyID,
			UnitID:      in.UnitID,
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		h.view(w, r, http.StatusCreated, req)
	}
}

// GET /api/requests/{id}
func (h *RequestHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, _, err := h.svc.Get(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		h.view(w, r, http.StatusOK, req)
	}
}

// POST /api/requests/{id}/transitions
func (h *RequestHTTP) Transition() http.HandlerFunc {
	type inDTO struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		target := models.Status(strings.ToLower(strings.TrimSpace(in.Status)))
		req, err := h.svc.Transition(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), target, v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		h.view(w, r, http.StatusOK, req)
	}
}

// POST /api/requests/{id}/assignment
func (h *RequestHTTP) Assign() http.HandlerFunc {
	type inDTO struct {
		AssigneeID   string `json:"assigneeId"`
		AssigneeKind string `json:"assigneeKind"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		req, err := h.svc.Assign(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"),
			in.AssigneeID, models.AssigneeKind(strings.TrimSpace(in.AssigneeKind)), v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		h.view(w, r, http.StatusOK, req)
	}
}

// POST /api/requests/{id}/public-link
func (h *RequestHTTP) EnablePublicLink() http.HandlerFunc {
	// expiryDays must be sent; an explicit 0 issues a link without expiry.
	type inDTO struct {
		ExpiryDays *int `json:"expiryDays"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		if in.ExpiryDays == nil {
			utils.Error(w, http.StatusBadRequest, "invalid_input")
			return
		}
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		link, err := h.svc.EnablePublicLink(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), *in.ExpiryDays, v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		setETag(w, link.Version)
		utils.JSON(w, http.StatusCreated, link)
	}
}

// DELETE /api/requests/{id}/public-link
func (h *RequestHTTP) DisablePublicLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		req, err := h.svc.DisablePublicLink(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		h.view(w, r, http.StatusOK, req)
	}
}

// POST /api/requests/{id}/comments
func (h *RequestHTTP) AddComment() http.HandlerFunc {
	type inDTO struct {
		Message string `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if !decode(w, r, &in, false) {
			return
		}
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		cm, err := h.svc.AddComment(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), in.Message, v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, cm)
	}
}

type mediaDTO struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func (m mediaDTO) model() models.Media {
	return models.Media{URL: m.URL, Filename: m.Filename, ContentType: m.ContentType, Size: m.Size}
}

// POST /api/requests/{id}/media
func (h *RequestHTTP) AddMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in mediaDTO
		if !decode(w, r, &in, false) {
			return
		}
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		m, err := h.svc.AddMedia(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), in.model(), v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, m)
	}
}

// DELETE /api/requests/{id}/media/{mediaId}
func (h *RequestHTTP) RemoveMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := expectedVersion(w, r)
		if !ok {
			return
		}
		err := h.svc.RemoveMedia(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "mediaId"), v)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
