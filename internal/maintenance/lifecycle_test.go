package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixit/internal/models"
)

var lifecycle = map[models.Status][]models.Status{
	models.StatusNew:        {models.StatusAssigned, models.StatusInProgress, models.StatusCanceled, models.StatusArchived},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusCanceled, models.StatusArchived},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCanceled, models.StatusArchived},
	models.StatusCompleted:  {models.StatusVerified, models.StatusReopened, models.StatusArchived},
	models.StatusVerified:   {models.StatusReopened, models.StatusArchived},
	models.StatusReopened:   {models.StatusInProgress, models.StatusCompleted, models.StatusArchived},
}

func inTable(from, to models.Status) bool {
	for _, s := range lifecycle[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestTransitionEveryPair(t *testing.T) {
	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			req := newRequest(from)
			req.AssignedTo = vendorX.ID
			req.AssignedToKind = models.AssigneeVendor

			out, ev, changed, err := Transition(req, to, admin, t0.Add(1))
			name := string(from) + "->" + string(to)

			switch {
			case from == models.StatusAssigned && to == models.StatusAssigned:
				require.NoError(t, err, name)
				assert.False(t, changed, name)
				assert.Equal(t, from, out.Status, name)
			case inTable(from, to):
				require.NoError(t, err, name)
				assert.True(t, changed, name)
				assert.Equal(t, to, out.Status, name)
				assert.Equal(t, models.ActionStatusChange, ev.Action, name)
				assert.Equal(t, string(from), ev.From, name)
				assert.Equal(t, string(to), ev.To, name)
				assert.Equal(t, admin.ID, ev.Actor, name)
				assert.Equal(t, from, req.Status, "input must not be mutated: "+name)
			default:
				assert.ErrorIs(t, err, ErrInvalidTransition, name)
			}
		}
	}
}

func TestCanTransitionMatchesTable(t *testing.T) {
	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			if from == to {
				continue
			}
			assert.Equal(t, inTable(from, to), CanTransition(from, to), "%s->%s", from, to)
		}
	}
}

func TestTransitionSelfLoops(t *testing.T) {
	for _, s := range []models.Status{models.StatusNew, models.StatusInProgress, models.StatusCompleted, models.StatusVerified, models.StatusReopened} {
		req := newRequest(s)
		req.AssignedTo = vendorX.ID
		req.AssignedToKind = models.AssigneeVendor
		_, _, changed, err := Transition(req, s, admin, t0)
		assert.ErrorIs(t, err, ErrInvalidTransition, string(s))
		assert.False(t, changed, string(s))
	}

	req := newRequest(models.StatusAssigned)
	req.AssignedTo = vendorX.ID
	req.AssignedToKind = models.AssigneeVendor
	out, _, changed, err := Transition(req, models.StatusAssigned, vendorX, t0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusAssigned, out.Status)
}

func TestTransitionUnknownTarget(t *testing.T) {
	_, _, _, err := Transition(newRequest(models.StatusNew), "done", admin, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionIntoAssignedNeedsAssignee(t *testing.T) {
	req := newRequest(models.StatusNew)
	_, _, _, err := Transition(req, models.StatusAssigned, admin, t0)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestTransitionAuthorization(t *testing.T) {
	cases := []struct {
		name   string
		from   models.Status
		to     models.Status
		caller Caller
		want   error
	}{
		{"assignee starts work", models.StatusAssigned, models.StatusInProgress, vendorX, nil},
		{"assignee completes", models.StatusInProgress, models.StatusCompleted, vendorX, nil},
		{"assignee resumes reopened", models.StatusReopened, models.StatusInProgress, vendorX, nil},
		{"assignee cannot verify", models.StatusCompleted, models.StatusVerified, vendorX, ErrForbidden},
		{"assignee cannot archive", models.StatusVerified, models.StatusArchived, vendorX, ErrForbidden},
		{"assignee cannot cancel", models.StatusAssigned, models.StatusCanceled, vendorX, ErrForbidden},
		{"creator cannot verify", models.StatusCompleted, models.StatusVerified, tenant, ErrForbidden},
		{"creator cannot start work", models.StatusAssigned, models.StatusInProgress, tenant, ErrForbidden},
		{"stranger forbidden", models.StatusInProgress, models.StatusCompleted, other, ErrForbidden},
		{"public forbidden", models.StatusInProgress, models.StatusCompleted, PublicCaller("Bob"), ErrForbidden},
		{"manager verifies", models.StatusCompleted, models.StatusVerified, manager, nil},
		{"landlord archives", models.StatusVerified, models.StatusArchived, UserCaller("ll", models.RoleLandlord), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := Transition(newRequest(tc.from), tc.to, tc.caller, t0)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTransitionSideEffects(t *testing.T) {
	req := newRequest(models.StatusInProgress)
	done, _, _, err := Transition(req, models.StatusCompleted, vendorX, t0.Add(10))
	require.NoError(t, err)
	require.NotNil(t, done.ResolvedAt)
	assert.Equal(t, t0.Add(10), done.UpdatedAt)

	reopened, _, _, err := Transition(done, models.StatusReopened, manager, t0.Add(20))
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, vendorX.ID, reopened.AssignedTo)

	canceled, _, _, err := Transition(newRequest(models.StatusAssigned), models.StatusCanceled, manager, t0)
	require.NoError(t, err)
	assert.Empty(t, canceled.AssignedTo)
	assert.Nil(t, canceled.AssignedAt)

	archived, _, _, err := Transition(newRequest(models.StatusVerified), models.StatusArchived, manager, t0)
	require.NoError(t, err)
	assert.Equal(t, vendorX.ID, archived.AssignedTo)
}

func TestAvailableTransitions(t *testing.T) {
	req := newRequest(models.StatusReopened)
	assert.ElementsMatch(t,
		[]models.Status{models.StatusInProgress, models.StatusCompleted},
		AvailableTransitions(vendorX, req))
	assert.ElementsMatch(t,
		[]models.Status{models.StatusInProgress, models.StatusCompleted, models.StatusArchived},
		AvailableTransitions(manager, req))
	assert.Empty(t, AvailableTransitions(tenant, req))
	assert.Empty(t, AvailableTransitions(manager, newRequest(models.StatusArchived)))
}

// The end-to-end lifecycle walk: assign a vendor, let them work, verify,
// archive, and confirm archived is final.
func TestLifecycleScenario(t *testing.T) {
	req, _, err := Create(CreateInput{Title: "Broken heater"}, tenant, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, req.Status)

	req, evs, err := Assign(req, vendorAssignee(), manager, t0.Add(1))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, req.Status)
	require.Len(t, evs, 2)
	assert.Equal(t, models.ActionAssignment, evs[0].Action)
	assert.Equal(t, models.ActionStatusChange, evs[1].Action)

	// re-requesting assigned right after assign is acknowledged
	_, _, changed, err := Transition(req, models.StatusAssigned, manager, t0.Add(2))
	require.NoError(t, err)
	assert.False(t, changed)

	req, _, _, err = Transition(req, models.StatusInProgress, vendorX, t0.Add(3))
	require.NoError(t, err)
	req, _, _, err = Transition(req, models.StatusCompleted, vendorX, t0.Add(4))
	require.NoError(t, err)

	_, _, _, err = Transition(req, models.StatusVerified, tenant, t0.Add(5))
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, _, err = Transition(req, models.StatusVerified, vendorX, t0.Add(5))
	assert.ErrorIs(t, err, ErrForbidden)

	req, _, _, err = Transition(req, models.StatusVerified, manager, t0.Add(6))
	require.NoError(t, err)
	req, _, _, err = Transition(req, models.StatusArchived, manager, t0.Add(7))
	require.NoError(t, err)

	_, _, _, err = Transition(req, models.StatusReopened, manager, t0.Add(8))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
