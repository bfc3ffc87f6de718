package maintenance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
)

// Assignee is a directory lookup result for a candidate assignee. Found is
// false when neither the user table nor the vendor directory knows the id.
type Assignee struct {
	ID     string
	Kind   models.AssigneeKind
	Role   models.Role
	Active bool
	Found  bool
}

// ValidateAssignee enforces the kind/role pairing: internal users must be
// manager-tier, vendors must be vendor accounts or directory entries.
func ValidateAssignee(a Assignee) error {
	if a.ID == "" || !a.Kind.Valid() {
		return ErrInvalidAssignee
	}
	if !a.Found || !a.Active {
		return fmt.Errorf("%w: unknown or inactive", ErrInvalidAssignee)
	}
	switch a.Kind {
	case models.AssigneeInternalUser:
		if !a.Role.ManagerTier() {
			return fmt.Errorf("%w: role %q cannot take internal assignments", ErrInvalidAssignee, a.Role)
		}
	case models.AssigneeVendor:
		if a.Role != models.RoleVendor {
			return fmt.Errorf("%w: role %q is not a vendor", ErrInvalidAssignee, a.Role)
		}
	}
	return nil
}

// Assign records the assignee and, for a new request, advances it to
// assigned in the same step. Reassignment keeps the current status.
func Assign(req *models.Request, a Assignee, c Caller, now time.Time) (*models.Request, []models.Event, error) {
	if req == nil {
		return nil, nil, ErrNotFound
	}
	if !c.ManagerTier() {
		return nil, nil, ErrForbidden
	}
	if req.Status.Terminal() {
		return nil, nil, fmt.Errorf("%w: request is %s", ErrPreconditionFailed, req.Status)
	}
	if err := ValidateAssignee(a); err != nil {
		return nil, nil, err
	}
	if req.AssignedTo == a.ID && req.AssignedToKind == a.Kind && req.Status != models.StatusNew {
		return req.Clone(), nil, nil
	}

	prev := req.AssignedTo
	out := req.Clone()
	at := now
	out.AssignedTo = a.ID
	out.AssignedToKind = a.Kind
	out.AssignedBy = c.ID
	out.AssignedAt = &at
	out.UpdatedAt = now

	events := []models.Event{{
		ID:        uuid.NewString(),
		Action:    models.ActionAssignment,
		RequestID: out.ID,
		From:      prev,
		To:        a.ID,
		Actor:     c.Actor(),
		Timestamp: now,
		Meta:      map[string]string{"assigneeKind": string(a.Kind)},
	}}

	if out.Status == models.StatusNew {
		advanced, ev, _, err := Transition(out, models.StatusAssigned, c, now)
		if err != nil {
			return nil, nil, err
		}
		out = advanced
		events = append(events, ev)
	}
	return out, events, nil
}
