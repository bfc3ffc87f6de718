package maintenance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
)

const (
	maxCommentLen = 4000
	maxAuthorLen  = 120
)

// NewComment authorizes and builds a comment for req. Public callers must
// supply a display name.
func NewComment(req *models.Request, c Caller, message string, now time.Time) (models.Comment, models.Event, error) {
	if err := Authorize(c, req, OpComment); err != nil {
		return models.Comment{}, models.Event{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" || len(message) > maxCommentLen {
		return models.Comment{}, models.Event{}, fmt.Errorf("%w: message", ErrInvalidInput)
	}
	cm := models.Comment{
		ID:         uuid.NewString(),
		RequestID:  req.ID,
		Message:    message,
		AuthorKind: models.AuthorUser,
		AuthorID:   c.ID,
		CreatedAt:  now,
	}
	if c.Public {
		name := strings.TrimSpace(c.DisplayName)
		if name == "" || len(name) > maxAuthorLen {
			return models.Comment{}, models.Event{}, fmt.Errorf("%w: author name", ErrInvalidInput)
		}
		cm.AuthorKind = models.AuthorPublic
		cm.AuthorID = ""
		cm.AuthorName = name
	}
	return cm, activityEvent(models.ActionCommentAdded, req.ID, c, now, map[string]string{"commentId": cm.ID}), nil
}

// NewMedia authorizes and builds a media reference for req.
func NewMedia(req *models.Request, c Caller, m models.Media, now time.Time) (models.Media, models.Event, error) {
	if err := Authorize(c, req, OpUploadMedia); err != nil {
		return models.Media{}, models.Event{}, err
	}
	m.URL = strings.TrimSpace(m.URL)
	m.Filename = strings.TrimSpace(m.Filename)
	if m.URL == "" || m.Size < 0 {
		return models.Media{}, models.Event{}, fmt.Errorf("%w: media reference", ErrInvalidInput)
	}
	m.ID = uuid.NewString()
	m.RequestID = req.ID
	m.CreatedAt = now
	if c.Public {
		m.UploaderKind = models.AuthorPublic
		m.UploadedBy = strings.TrimSpace(c.DisplayName)
	} else {
		m.UploaderKind = models.AuthorUser
		m.UploadedBy = c.ID
	}
	return m, activityEvent(models.ActionMediaAdded, req.ID, c, now, map[string]string{"mediaId": m.ID}), nil
}

// RemoveMedia authorizes removal of one media item from req.
func RemoveMedia(req *models.Request, c Caller, mediaID string, now time.Time) (models.Event, error) {
	if req == nil {
		return models.Event{}, ErrNotFound
	}
	for _, m := range req.Media {
		if m.ID != mediaID {
			continue
		}
		if !CanRemoveMedia(c, req, m) {
			return models.Event{}, ErrForbidden
		}
		return activityEvent(models.ActionMediaRemoved, req.ID, c, now, map[string]string{"mediaId": m.ID}), nil
	}
	if !Capabilities(c, req).Has(OpView) {
		return models.Event{}, ErrForbidden
	}
	return models.Event{}, ErrNotFound
}

func activityEvent(action models.EventAction, requestID string, c Caller, now time.Time, meta map[string]string) models.Event {
	return models.Event{
		ID:        uuid.NewString(),
		Action:    action,
		RequestID: requestID,
		Actor:     c.Actor(),
		Timestamp: now,
		Meta:      meta,
	}
}
