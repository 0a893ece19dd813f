package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/municipia/municipia/internal/domain"
)

func TestTenantStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to domain.TenantStatus
		ok       bool
	}{
		{domain.TenantProvisioning, domain.TenantActive, true},
		{domain.TenantProvisioning, domain.TenantSuspended, false},
		{domain.TenantProvisioning, domain.TenantProvisioning, false},
		{domain.TenantActive, domain.TenantSuspended, true},
		{domain.TenantActive, domain.TenantProvisioning, false},
		{domain.TenantActive, domain.TenantActive, false},
		{domain.TenantSuspended, domain.TenantActive, true},
		{domain.TenantSuspended, domain.TenantProvisioning, false},
		{domain.TenantStatus("deleted"), domain.TenantActive, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTenantPlanValid(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.PlanBase.Valid())
	assert.True(t, domain.PlanPro.Valid())
	assert.True(t, domain.PlanEnterprise.Valid())
	assert.False(t, domain.TenantPlan("premium").Valid())
	assert.False(t, domain.TenantPlan("").Valid())
}
