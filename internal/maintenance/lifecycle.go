package maintenance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
)

// edges is the directed transition table. Archival from any live state is
// folded in by archivable below.
var edges = map[models.Status][]models.Status{
	models.StatusNew:        {models.StatusAssigned, models.StatusInProgress, models.StatusCanceled},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusCanceled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCanceled},
	models.StatusCompleted:  {models.StatusVerified, models.StatusReopened},
	models.StatusVerified:   {models.StatusReopened, models.StatusArchived},
	models.StatusReopened:   {models.StatusInProgress, models.StatusCompleted, models.StatusArchived},
}

// assigneeEdges are the forward moves the current assignee may make without a
// manager-tier role.
var assigneeEdges = map[models.Status][]models.Status{
	models.StatusAssigned:   {models.StatusInProgress},
	models.StatusInProgress: {models.StatusCompleted},
	models.StatusReopened:   {models.StatusInProgress, models.StatusCompleted},
}

// assignedStates are the statuses in which assignedTo may be set.
var assignedStates = map[models.Status]bool{
	models.StatusAssigned:   true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusVerified:   true,
	models.StatusReopened:   true,
	models.StatusArchived:   true,
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to models.Status) bool {
	if from.Terminal() {
		return false
	}
	if to == models.StatusArchived {
		return true
	}
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Targets lists every status reachable from from in one step.
func Targets(from models.Status) []models.Status {
	var out []models.Status
	for _, s := range models.Statuses {
		if s != from && CanTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}

// AvailableTransitions lists the targets the caller may move req to right now.
func AvailableTransitions(c Caller, req *models.Request) []models.Status {
	var out []models.Status
	for _, to := range Targets(req.Status) {
		if edgeAllowed(c, req, req.Status, to) {
			out = append(out, to)
		}
	}
	return out
}

func edgeAllowed(c Caller, req *models.Request, from, to models.Status) bool {
	if c.ManagerTier() {
		return true
	}
	if !isAssignee(c, req) {
		return false
	}
	for _, s := range assigneeEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isAssignee(c Caller, req *models.Request) bool {
	return c.Authenticated() && req.AssignedTo != "" && req.AssignedTo == c.ID && assignedStates[req.Status]
}

// Transition validates and applies one status change. It returns a copy of
// the request; the input is never modified. changed is false when target
// is assigned on an already assigned request (the follow-up to Assign), which
// is acknowledged as a no-op. Any other self-loop is an invalid transition.
func Transition(req *models.Request, target models.Status, c Caller, now time.Time) (out *models.Request, ev models.Event, changed bool, err error) {
	if req == nil {
		return nil, ev, false, ErrNotFound
	}
	if !target.Valid() {
		return nil, ev, false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if c.Public {
		return nil, ev, false, ErrForbidden
	}

	from := req.Status
	if from == models.StatusAssigned && target == models.StatusAssigned {
		if !c.ManagerTier() && !isAssignee(c, req) {
			return nil, ev, false, ErrForbidden
		}
		if req.AssignedTo == "" {
			return nil, ev, false, ErrPreconditionFailed
		}
		return req.Clone(), ev, false, nil
	}
	if !CanTransition(from, target) {
		return nil, ev, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}
	if !edgeAllowed(c, req, from, target) {
		return nil, ev, false, ErrForbidden
	}
	if target == models.StatusAssigned && req.AssignedTo == "" {
		return nil, ev, false, fmt.Errorf("%w: assignee required", ErrPreconditionFailed)
	}

	out = applyStatus(req.Clone(), target, now)
	return out, statusEvent(out.ID, from, target, c, now), true, nil
}

func applyStatus(r *models.Request, target models.Status, now time.Time) *models.Request {
	switch target {
	case models.StatusCompleted:
		t := now
		r.ResolvedAt = &t
	case models.StatusReopened, models.StatusInProgress:
		r.ResolvedAt = nil
	case models.StatusCanceled:
		r.AssignedTo, r.AssignedToKind, r.AssignedBy, r.AssignedAt = "", "", "", nil
	}
	r.Status = target
	r.UpdatedAt = now
	return r
}

func statusEvent(requestID string, from, to models.Status, c Caller, now time.Time) models.Event {
	return models.Event{
		ID:        uuid.NewString(),
		Action:    models.ActionStatusChange,
		RequestID: requestID,
		From:      string(from),
		To:        string(to),
		Actor:     c.Actor(),
		Timestamp: now,
	}
}
