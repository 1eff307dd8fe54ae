package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/escalation-service/internal/domain"
)

func TestForwardPermissionByLevel(t *testing.T) {
	perm, ok := ForwardPermission(domain.LevelPlant)
	require.True(t, ok)
	assert.Equal(t, PermForwardPlant, perm)

	perm, ok = ForwardPermission(domain.LevelCompany)
	require.True(t, ok)
	assert.Equal(t, PermForwardCompany, perm)

	_, ok = ForwardPermission(domain.LevelSuperadmin)
	assert.False(t, ok, "superadmin has no forward target")
}

func TestRoleCheckerGrants(t *testing.T) {
	checker := NewPermissionChecker()
	ctx := context.Background()

	manager := &domain.Actor{ID: "a1", Tier: domain.LevelPlant, Roles: []domain.Role{domain.RolePlantManager}}
	technician := &domain.Actor{ID: "a2", Tier: domain.LevelPlant, Roles: []domain.Role{domain.RolePlantTechnician}}
	admin := &domain.Actor{ID: "a3", Tier: domain.LevelCompany, Roles: []domain.Role{domain.RoleCompanyAdmin}}

	assert.True(t, checker.Has(ctx, manager, PermForwardPlant))
	assert.False(t, checker.Has(ctx, manager, PermForwardCompany))

	assert.False(t, checker.Has(ctx, technician, PermForwardPlant))

	assert.True(t, checker.Has(ctx, admin, PermForwardCompany))
	assert.False(t, checker.Has(ctx, admin, PermForwardPlant))

	assert.False(t, checker.Has(ctx, nil, PermForwardPlant))
}
