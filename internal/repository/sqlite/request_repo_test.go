package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixit/internal/models"
	"fixit/internal/repository"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

var at = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func sampleRequest(id string) *models.Request {
	return &models.Request{
		ID:        id,
		Title:     "Mould in bathroom",
		Priority:  models.PriorityHigh,
		Status:    models.StatusNew,
		CreatedBy: "tenant-1",
		Version:   1,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	req := sampleRequest("r1")
	exp := at.AddDate(0, 0, 3)
	req.PublicAccess = &models.PublicAccess{TokenHash: "h1", Enabled: true, ExpiresAt: &exp, IssuedBy: "pm", IssuedAt: at}
	require.NoError(t, st.Requests.Create(ctx, req))

	got, err := st.Requests.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, req.Title, got.Title)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.CreatedAt.Equal(at))
	require.NotNil(t, got.PublicAccess)
	assert.Equal(t, "h1", got.PublicAccess.TokenHash)
	assert.True(t, got.PublicAccess.ExpiresAt.Equal(exp))

	byHash, err := st.Requests.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "r1", byHash.ID)

	_, err = st.Requests.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = st.Requests.GetByTokenHash(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSaveCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	require.NoError(t, st.Requests.Create(ctx, sampleRequest("r1")))

	upd := sampleRequest("r1")
	upd.Status = models.StatusInProgress
	upd.AssignedTo = "v1"
	upd.AssignedToKind = models.AssigneeVendor
	upd.UpdatedAt = at.Add(time.Minute)

	v, err := st.Requests.Save(ctx, upd, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = st.Requests.Save(ctx, upd, 1)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = st.Requests.Save(ctx, sampleRequest("ghost"), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := st.Requests.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "v1", got.AssignedTo)
	assert.Equal(t, int64(2), got.Version)
}

func TestAppendsBumpVersion(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	require.NoError(t, st.Requests.Create(ctx, sampleRequest("r1")))

	v, err := st.Requests.AppendComment(ctx, models.Comment{ID: "c1", RequestID: "r1", AuthorID: "u", AuthorKind: models.AuthorUser, Message: "hi", CreatedAt: at}, 1, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = st.Requests.AppendComment(ctx, models.Comment{ID: "c2", RequestID: "r1", AuthorKind: models.AuthorUser, Message: "stale", CreatedAt: at}, 1, at)
	assert.ErrorIs(t, err, repository.ErrConflict)

	v, err = st.Requests.AppendMedia(ctx, models.Media{ID: "m1", RequestID: "r1", URL: "u", UploaderKind: models.AuthorUser, CreatedAt: at}, 2, at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = st.Requests.RemoveMedia(ctx, "r1", "nope", 3, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	v, err = st.Requests.RemoveMedia(ctx, "r1", "m1", 3, at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	got, err := st.Requests.Get(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "hi", got.Comments[0].Message)
	assert.Empty(t, got.Media)
	assert.Equal(t, int64(4), got.Version)
}

func TestExpirePublicAccessOnce(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	req := sampleRequest("r1")
	req.PublicAccess = &models.PublicAccess{TokenHash: "h1", Enabled: true, IssuedAt: at}
	require.NoError(t, st.Requests.Create(ctx, req))

	changed, err := st.Requests.ExpirePublicAccess(ctx, "r1", "h1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = st.Requests.ExpirePublicAccess(ctx, "r1", "h1", at)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := st.Requests.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, got.PublicAccess.Enabled)
	assert.NotNil(t, got.PublicAccess.RevokedAt)
	assert.Equal(t, int64(2), got.Version)
}

func TestListVisibility(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	a := sampleRequest("a")
	b := sampleRequest("b")
	b.CreatedBy = "tenant-2"
	b.Status = models.StatusAssigned
	b.AssignedTo = "vendor-1"
	require.NoError(t, st.Requests.Create(ctx, a))
	require.NoError(t, st.Requests.Create(ctx, b))

	_, total, err := st.Requests.List(ctx, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, total, err := st.Requests.List(ctx, repository.RequestFilter{VisibleTo: "vendor-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b", items[0].ID)

	_, total, err = st.Requests.List(ctx, repository.RequestFilter{Status: "new"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUsersAndVendors(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	u, err := st.Users.Create(ctx, "pm@example.com", "Pat", models.RolePropertyManager, "hash")
	require.NoError(t, err)

	got, hash, err := st.Users.GetByEmail(ctx, "pm@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", hash)

	missing, err := st.Users.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.Users.SetActive(ctx, u.ID, false))
	active := true
	_, total, err := st.Users.List(ctx, "", []models.Role{models.RolePropertyManager}, &active, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	v := &models.Vendor{Name: "Acme", Active: true}
	require.NoError(t, st.Vendors.Create(ctx, v))
	gv, err := st.Vendors.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", gv.Name)
	list, total, err := st.Vendors.List(ctx, "acm", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}
