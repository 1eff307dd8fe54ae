package directory

import (
	"context"

	"github.com/plantops/escalation-service/internal/domain"
)

// Permission names a capability an actor may hold.
type Permission string

const (
	// PermForwardPlant escalates a plant-level ticket to company.
	PermForwardPlant Permission = "ticket.forward.plant"
	// PermForwardCompany escalates a company-level ticket to superadmin.
	PermForwardCompany Permission = "ticket.forward.company"
)

// PermissionChecker is the hasPermission collaborator.
type PermissionChecker interface {
	Has(ctx context.Context, actor *domain.Actor, permission Permission) bool
}

// roleGrants maps roles to the capabilities they carry. Forwarding is
// role-restricted per tier; status changes are a local-tier concern and need
// no grant beyond scope.
var roleGrants = map[domain.Role][]Permission{
	domain.RolePlantManager: {PermForwardPlant},
	domain.RoleCompanyAdmin: {PermForwardCompany},
}

type roleChecker struct{}

// NewPermissionChecker builds the role-based checker.
func NewPermissionChecker() PermissionChecker {
	return roleChecker{}
}

func (roleChecker) Has(_ context.Context, actor *domain.Actor, permission Permission) bool {
	if actor == nil {
		return false
	}
	for _, role := range actor.Roles {
		for _, granted := range roleGrants[role] {
			if granted == permission {
				return true
			}
		}
	}
	return false
}

// ForwardPermission returns the capability required to escalate a ticket
// currently owned by the given level. Superadmin has no forward target.
func ForwardPermission(level domain.TicketLevel) (Permission, bool) {
	switch level {
	case domain.LevelPlant:
		return PermForwardPlant, true
	case domain.LevelCompany:
		return PermForwardCompany, true
	default:
		return "", false
	}
}
