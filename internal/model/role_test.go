package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleRoundTrip(t *testing.T) {
	for role := RoleAdmin; role <= RoleCompany; role++ {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestRoleCanManageProcesses(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageProcesses())
	assert.True(t, RoleCountryTechnician.CanManageProcesses())

	for _, role := range []Role{RoleAdvisor, RoleAuditor, RoleCommittee, RoleConsultingFirm, RoleAuditFirm, RoleCompany} {
		assert.False(t, role.CanManageProcesses(), role.String())
	}
}

func TestRoleInternal(t *testing.T) {
	assert.False(t, RoleCompany.Internal())
	assert.True(t, RoleAuditor.Internal())
}
