package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixit/internal/config"
	"fixit/internal/events"
	"fixit/internal/models"
	"fixit/internal/repository/sqlite"
	"fixit/internal/service"
	"fixit/internal/tokencache"
	"fixit/internal/utils"
)

const secret = "test-secret"

type env struct {
	t     *testing.T
	h     http.Handler
	store *sqlite.Store
	users map[models.Role]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Config{
		Env:                   "dev",
		Origin:                "http://localhost:3000",
		SessionSecret:         secret,
		PublicOrigin:          "https://fixit.example",
		RateLimitPerMin:       10000,
		PublicRateLimitPerMin: 10000,
	}
	h := New(zerolog.Nop(), Backend{
		Requests: st.Requests,
		Users:    st.Users,
		Vendors:  st.Vendors,
		DB:       st,
		Events:   &events.Recorder{},
		Links:    tokencache.NewMemory(),
	}, cfg)

	e := &env{t: t, h: h, store: st, users: map[models.Role]string{}}
	for _, role := range []models.Role{models.RoleTenant, models.RolePropertyManager, models.RoleVendor} {
		u, err := st.Users.Create(ctx, string(role)+"@example.com", string(role), role, "x")
		require.NoError(t, err)
		e.users[role] = u.ID
	}
	return e
}

func (e *env) do(role models.Role, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		tok, err := utils.SignJWT(secret, e.users[role], role, time.Hour)
		require.NoError(e.t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *env) createRequest() string {
	e.t.Helper()
	rec := e.do(models.RoleTenant, http.MethodPost, "/api/requests", `{"title":"Dripping tap","priority":"high"}`)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(e.t, `"1"`, rec.Header().Get("ETag"))
	req := decodeBody(e.t, rec)["request"].(map[string]any)
	return req["id"].(string)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec := e.do("", http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequiresSession(t *testing.T) {
	e := newEnv(t)
	rec := e.do("", http.MethodGet, "/api/requests", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransitionsOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.createRequest()
	base := "/api/requests/" + id

	rec := e.do(models.RolePropertyManager, http.MethodPost, base+"/transitions", `{"status":"in_progress"}`, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/transitions", `{"status":"canceled"}`, "If-Match", `"1"`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"conflict"}`, rec.Body.String())

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/transitions", `{"status":"verified"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_transition"}`, rec.Body.String())

	rec = e.do(models.RoleTenant, http.MethodPost, base+"/transitions", `{"status":"completed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/transitions", `{"status":"completed"}`, "If-Match", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(models.RolePropertyManager, http.MethodPost, "/api/requests/nope/transitions", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignmentOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.createRequest()
	base := "/api/requests/" + id

	rec := e.do(models.RolePropertyManager, http.MethodPost, base+"/assignment",
		`{"assigneeId":"`+e.users[models.RoleTenant]+`","assigneeKind":"internalUser"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/assignment",
		`{"assigneeId":"`+e.users[models.RoleVendor]+`","assigneeKind":"vendor"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "assigned", body["request"].(map[string]any)["status"])

	// the vendor now sees the request and may start work
	rec = e.do(models.RoleVendor, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.ElementsMatch(t, []any{"in_progress"}, body["availableTransitions"])
	assert.Contains(t, body["capabilities"], "transition")

	rec = e.do(models.RolePropertyManager, http.MethodGet, "/api/assignees?kind=vendor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["total"])

	rec = e.do(models.RoleTenant, http.MethodGet, "/api/assignees", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicLinkOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.createRequest()
	base := "/api/requests/" + id

	rec := e.do(models.RoleTenant, http.MethodPost, base+"/public-link", `{"expiryDays":7}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/public-link", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/public-link", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_input"}`, rec.Body.String())

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/public-link", `{"expiryDays":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, decodeBody(t, rec)["expiresAt"])

	rec = e.do(models.RolePropertyManager, http.MethodPost, base+"/public-link", `{"expiryDays":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var link service.PublicLink
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, "https://fixit.example/public/requests/"+link.Token, link.URL)

	rec = e.do("", http.MethodGet, "/public/requests/"+link.Token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.ElementsMatch(t, []any{"view", "comment", "upload_media"}, body["capabilities"])
	assert.NotContains(t, body["request"], "publicAccess")

	rec = e.do("", http.MethodPost, "/public/requests/"+link.Token+"/comments", `{"authorName":"Sam","message":"on site at 9"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do("", http.MethodGet, "/public/requests/not-a-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"token_not_found"}`, rec.Body.String())

	// a bearer cannot reach the authenticated API with the token
	rec = e.do("", http.MethodPost, base+"/transitions", `{"status":"canceled"}`, "Authorization", "Bearer "+link.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(models.RolePropertyManager, http.MethodDelete, base+"/public-link", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do("", http.MethodGet, "/public/requests/"+link.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentsAndMediaOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.createRequest()
	base := "/api/requests/" + id

	rec := e.do(models.RoleTenant, http.MethodPost, base+"/comments", `{"message":"any update?"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(models.RoleTenant, http.MethodPost, base+"/media", `{"url":"https://cdn/a.jpg","filename":"a.jpg","contentType":"image/jpeg","size":42}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	mediaID := decodeBody(t, rec)["id"].(string)

	rec = e.do(models.RoleTenant, http.MethodPost, base+"/comments", `{"message":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(models.RoleTenant, http.MethodDelete, base+"/media/"+mediaID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(models.RoleTenant, http.MethodGet, "/api/requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t)
	auth := service.NewAuthService(e.store.Users, secret)
	_, err := auth.CreateUser(context.Background(), "land@example.com", "Lana", "correct-horse", models.RoleLandlord)
	require.NoError(t, err)

	rec := e.do("", http.MethodPost, "/api/auth/login", `{"email":"land@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do("", http.MethodPost, "/api/auth/login", `{"email":"LAND@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	e.h.ServeHTTP(me, r)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "landlord", decodeBody(t, me)["role"])
}
