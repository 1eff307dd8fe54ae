package domain

// Role grants capabilities beyond an actor's tier scope.
type Role string

const (
	RolePlantTechnician Role = "plant_technician"
	RolePlantManager    Role = "plant_manager"
	RoleCompanyAdmin    Role = "company_admin"
	RoleSuperadmin      Role = "superadmin"
)

// Actor is the identity resolved for an authenticated caller. Tier reuses the
// ticket level values: an actor at a tier is scoped to tickets owned by that
// tier.
type Actor struct {
	ID        string
	Name      string
	Tier      TicketLevel
	PlantID   *string
	CompanyID *string
	Roles     []Role
}

// HasRole reports whether the actor carries the given role.
func (a *Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
