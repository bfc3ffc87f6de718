package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"fixit/internal/maintenance"
	"fixit/internal/utils"
)

var statusByKind = map[string]int{
	"invalid_transition":  http.StatusConflict,
	"precondition_failed": http.StatusPreconditionFailed,
	"invalid_assignee":    http.StatusUnprocessableEntity,
	"forbidden":           http.StatusForbidden,
	"token_not_found":     http.StatusNotFound,
	"token_expired":       http.StatusGone,
	"conflict":            http.StatusConflict,
	"not_found":           http.StatusNotFound,
	"invalid_input":       http.StatusBadRequest,
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	if s, ok := statusByKind[maintenance.Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeErr renders err as {"error": kind}. Internal errors are logged and
// never echoed to the client.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		utils.Error(w, status, "internal")
		return
	}
	utils.Error(w, status, maintenance.Kind(err))
}

// decode reads a JSON body. An empty body leaves v untouched when
// allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := utils.DecodeJSON(w, r, v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	utils.Error(w, http.StatusBadRequest, "invalid_input")
	return false
}

func expectedVersion(w http.ResponseWriter, r *http.Request) (int64, bool) {
	v, ok := utils.IfMatchVersion(r)
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid_input")
	}
	return v, ok
}
