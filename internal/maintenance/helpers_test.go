package maintenance

import (
	"time"

	"fixit/internal/models"
)

var (
	t0      = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	admin   = UserCaller("admin-1", models.RoleAdmin)
	manager = UserCaller("pm-1", models.RolePropertyManager)
	tenant  = UserCaller("tenant-1", models.RoleTenant)
	vendorX = UserCaller("vendor-x", models.RoleVendor)
	other   = UserCaller("tenant-2", models.RoleTenant)
)

func newRequest(status models.Status) *models.Request {
	r := &models.Request{
		ID:        "req-1",
		Title:     "Leaking tap",
		Priority:  models.PriorityMedium,
		Status:    status,
		CreatedBy: tenant.ID,
		Version:   1,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if status != models.StatusNew && status != models.StatusCanceled {
		at := t0
		r.AssignedTo = vendorX.ID
		r.AssignedToKind = models.AssigneeVendor
		r.AssignedBy = manager.ID
		r.AssignedAt = &at
	}
	return r
}

func vendorAssignee() Assignee {
	return Assignee{ID: vendorX.ID, Kind: models.AssigneeVendor, Role: models.RoleVendor, Active: true, Found: true}
}
