package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMembership(t *testing.T) {
	tenantID := uuid.New()

	m, err := NewMembership(tenantID, " Awa@Acme.CI ", "Awa", "", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "awa@acme.ci", m.Email)
	assert.Equal(t, MembershipRoleMember, m.Role)
	assert.Equal(t, tenantID, m.TenantID)
	assert.True(t, m.IsActive())

	_, err = NewMembership(uuid.Nil, "awa@acme.ci", "Awa", MembershipRoleAdmin, day(2024, 1, 1))
	assert.Contains(t, err.Error(), "Tenant ID cannot be empty")

	_, err = NewMembership(tenantID, "bad", "Awa", MembershipRoleAdmin, day(2024, 1, 1))
	assert.Contains(t, err.Error(), "Invalid email format")

	_, err = NewMembership(tenantID, "awa@acme.ci", "Awa", MembershipRole("root"), day(2024, 1, 1))
	assert.Contains(t, err.Error(), "Role must be")
}

func TestMembership_DisableEnable(t *testing.T) {
	m, err := NewMembership(uuid.New(), "awa@acme.ci", "Awa", MembershipRoleOwner, day(2024, 1, 1))
	require.NoError(t, err)

	require.NoError(t, m.Disable(day(2024, 2, 1)))
	assert.False(t, m.IsActive())
	require.NotNil(t, m.DisabledAt)
	assert.Error(t, m.Disable(day(2024, 2, 1)))

	require.NoError(t, m.Enable(day(2024, 3, 1)))
	assert.True(t, m.IsActive())
	assert.Nil(t, m.DisabledAt)
	assert.Equal(t, 3, m.Version)
}
