package models

import "time"

type Role string

const (
	RoleTenant          Role = "tenant"
	RoleVendor          Role = "vendor"
	RolePropertyManager Role = "propertymanager"
	RoleLandlord        Role = "landlord"
	RoleAdmin           Role = "admin"
)

// ManagerTier reports whether the role may assign, verify, archive and
// manage public links.
func (r Role) ManagerTier() bool {
	switch r {
	case RolePropertyManager, RoleLandlord, RoleAdmin:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleVendor, RolePropertyManager, RoleLandlord, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Vendor is a directory entry for an external contractor. Vendors may or may
// not hold a user account.
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Services  string    `json:"services,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
