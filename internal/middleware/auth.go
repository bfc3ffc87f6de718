package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"fixit/internal/maintenance"
	"fixit/internal/models"
	"fixit/internal/utils"
)

type ctxKey string

const (
	CtxUserID ctxKey = "uid"
	CtxRole   ctxKey = "role"
)

const SessionCookie = "session"

func WithAuth(log zerolog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Read JWT from cookie "session" or Authorization: Bearer
			var tok string
			if c, err := r.Cookie(SessionCookie); err == nil {
				tok = c.Value
			} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tok = strings.TrimPrefix(h, "Bearer ")
			}

			if tok == "" {
				next.ServeHTTP(w, r) // unauthenticated; handlers can decide
				return
			}

			claims, err := utils.ParseJWT(secret, tok)
			if err != nil || !claims.Role.Valid() {
				log.Debug().Err(err).Msg("dropping invalid session")
				// clear broken/expired cookie so it stops being sent
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    "",
					Path:     "/",
					HttpOnly: true,
					MaxAge:   -1,
				})
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, claims.UserID)
			ctx = context.WithValue(ctx, CtxRole, string(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFrom builds the acting caller from the session placed by WithAuth.
// The zero Caller is returned for anonymous requests.
func CallerFrom(ctx context.Context) maintenance.Caller {
	uid, _ := utils.GetString(ctx, CtxUserID)
	role, _ := utils.GetString(ctx, CtxRole)
	if uid == "" {
		return maintenance.Caller{}
	}
	return maintenance.UserCaller(uid, models.Role(role))
}
