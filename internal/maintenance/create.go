package maintenance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
)

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    models.Priority
	PropertyID  string
	UnitID      string
}

// Create builds a new request owned by c. Vendors and public callers cannot
// open requests.
func Create(in CreateInput, c Caller, now time.Time) (*models.Request, models.Event, error) {
	if !c.Authenticated() || c.Role == models.RoleVendor {
		return nil, models.Event{}, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, models.Event{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	in.Priority = models.Priority(strings.ToLower(strings.TrimSpace(string(in.Priority))))
	if !in.Priority.Valid() {
		return nil, models.Event{}, fmt.Errorf("%w: priority %q", ErrInvalidInput, in.Priority)
	}
	r := &models.Request{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Priority:    in.Priority,
		Status:      models.StatusNew,
		PropertyID:  strings.TrimSpace(in.PropertyID),
		UnitID:      strings.TrimSpace(in.UnitID),
		CreatedBy:   c.ID,
		Media:       []models.Media{},
		Comments:    []models.Comment{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return r, activityEvent(models.ActionRequestCreated, r.ID, c, now, map[string]string{"priority": string(r.Priority)}), nil
}
