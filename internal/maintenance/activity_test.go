package maintenance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixit/internal/models"
)

func TestNewComment(t *testing.T) {
	req := newRequest(models.StatusInProgress)

	cm, ev, err := NewComment(req, tenant, "  still dripping  ", t0)
	require.NoError(t, err)
	assert.Equal(t, "still dripping", cm.Message)
	assert.Equal(t, tenant.ID, cm.AuthorID)
	assert.Equal(t, models.AuthorUser, cm.AuthorKind)
	assert.Equal(t, models.ActionCommentAdded, ev.Action)
	assert.Equal(t, cm.ID, ev.Meta["commentId"])

	pub, ev, err := NewComment(req, PublicCaller("Plumber Joe"), "on my way", t0)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorPublic, pub.AuthorKind)
	assert.Empty(t, pub.AuthorID)
	assert.Equal(t, "Plumber Joe", pub.AuthorName)
	assert.Equal(t, "public:Plumber Joe", ev.Actor)
}

func TestNewCommentRejects(t *testing.T) {
	req := newRequest(models.StatusInProgress)

	_, _, err := NewComment(req, other, "hi", t0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = NewComment(req, tenant, "   ", t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = NewComment(req, tenant, strings.Repeat("x", maxCommentLen+1), t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = NewComment(req, PublicCaller(""), "anon", t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewMedia(t *testing.T) {
	req := newRequest(models.StatusAssigned)
	m, ev, err := NewMedia(req, vendorX, models.Media{URL: " https://cdn/x.jpg ", Filename: "x.jpg", Size: 10}, t0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.jpg", m.URL)
	assert.Equal(t, req.ID, m.RequestID)
	assert.Equal(t, vendorX.ID, m.UploadedBy)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, models.ActionMediaAdded, ev.Action)

	_, _, err = NewMedia(req, vendorX, models.Media{}, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = NewMedia(req, other, models.Media{URL: "u"}, t0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRemoveMedia(t *testing.T) {
	req := newRequest(models.StatusInProgress)
	req.Media = []models.Media{
		{ID: "m1", UploadedBy: vendorX.ID, UploaderKind: models.AuthorUser},
	}

	ev, err := RemoveMedia(req, vendorX, "m1", t0)
	require.NoError(t, err)
	assert.Equal(t, models.ActionMediaRemoved, ev.Action)

	_, err = RemoveMedia(req, tenant, "m1", t0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = RemoveMedia(req, manager, "missing", t0)
	assert.ErrorIs(t, err, ErrNotFound)
	// strangers learn nothing about which ids exist
	_, err = RemoveMedia(req, other, "missing", t0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreate(t *testing.T) {
	req, ev, err := Create(CreateInput{Title: "  No heat ", Priority: "URGENT", PropertyID: "p1"}, tenant, t0)
	require.NoError(t, err)
	assert.Equal(t, "No heat", req.Title)
	assert.Equal(t, models.PriorityUrgent, req.Priority)
	assert.Equal(t, models.StatusNew, req.Status)
	assert.Equal(t, int64(1), req.Version)
	assert.Equal(t, tenant.ID, req.CreatedBy)
	assert.Equal(t, models.ActionRequestCreated, ev.Action)

	def, _, err := Create(CreateInput{Title: "t"}, manager, t0)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, def.Priority)

	_, _, err = Create(CreateInput{Title: ""}, tenant, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = Create(CreateInput{Title: "t", Priority: "whenever"}, tenant, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = Create(CreateInput{Title: "t"}, vendorX, t0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = Create(CreateInput{Title: "t"}, PublicCaller("x"), t0)
	assert.ErrorIs(t, err, ErrForbidden)
}
