package maintenance

import "fixit/internal/models"

// Caller identifies who is acting on a request. A public caller holds a
// resolved public-link token and nothing else; its ID and Role are ignored.
type Caller struct {
	ID          string
	Role        models.Role
	Public      bool
	DisplayName string
}

func UserCaller(id string, role models.Role) Caller { return Caller{ID: id, Role: role} }

func PublicCaller(displayName string) Caller {
	return Caller{Public: true, DisplayName: displayName}
}

func (c Caller) Authenticated() bool { return !c.Public && c.ID != "" && c.Role.Valid() }

func (c Caller) ManagerTier() bool { return c.Authenticated() && c.Role.ManagerTier() }

// Actor is the audit identity recorded on events.
func (c Caller) Actor() string {
	if c.Public {
		if c.DisplayName != "" {
			return "public:" + c.DisplayName
		}
		return "public"
	}
	return c.ID
}
