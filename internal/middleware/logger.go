package middleware

import (
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const publicPrefix = "/public/requests/"

// RequestLogger attaches l to the request context and writes one access line
// per request. Public link tokens are masked in the logged path.
func RequestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		ev := hlog.FromRequest(r).Info()
		if status >= 500 {
			ev = hlog.FromRequest(r).Error()
		}
		ev.Str("method", r.Method).
			Str("path", redactPath(r.URL.Path)).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Str("req_id", chimw.GetReqID(r.Context())).
			Msg("http")
	})
	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(l)(access(next))
	}
}

func redactPath(p string) string {
	if !strings.HasPrefix(p, publicPrefix) {
		return p
	}
	rest := strings.TrimPrefix(p, publicPrefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return publicPrefix + "***" + rest[i:]
	}
	return publicPrefix + "***"
}
