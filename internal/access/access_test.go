package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestRolePermissions(t *testing.T) {
	super := Principal{Role: RoleSuperAdmin}
	manager := Principal{Role: RoleManager}
	supervisor := Principal{Role: RoleSupervisor}
	operator := Principal{Role: RoleOperator}

	assert.True(t, super.Can(Perm(Delete, User)))
	assert.False(t, manager.Can(Perm(Delete, User)))
	assert.True(t, manager.Can(Perm(Create, Purchase)))

	assert.True(t, supervisor.Can(Perm(Read, Purchase)))
	assert.True(t, supervisor.Can(Perm(Create, Mutation)))
	assert.False(t, supervisor.Can(Perm(Create, Purchase)))
	assert.False(t, supervisor.Can(Perm(Read, User)))

	assert.True(t, operator.Can(Perm(Create, Recording)))
	assert.True(t, operator.Can(Perm(Read, Stock)))
	assert.False(t, operator.Can(Perm(Read, Purchase)))
	assert.False(t, operator.Can(Perm(Create, Sale)))

	assert.False(t, Principal{Role: "Nobody"}.Can(Perm(Read, Farm)))

	err := operator.Require(Perm(Delete, Farm))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestRoleMatrix(t *testing.T) {
	cases := []struct {
		role  Role
		perm  Permission
		allow bool
	}{
		{RoleManager, Perm(Update, User), true},
		{RoleSupervisor, Perm(Read, Report), true},
		{RoleSupervisor, Perm(Read, Stock), true},
		{RoleSupervisor, Perm(Update, Sale), true},
		{RoleSupervisor, Perm(Delete, Recording), false},
		{RoleSupervisor, Perm(Update, Farm), false},
		{RoleOperator, Perm(Read, Depletion), true},
		{RoleOperator, Perm(Read, Recording), true},
		{RoleOperator, Perm(Read, Report), true},
		{RoleOperator, Perm(Create, Depletion), true},
		{RoleOperator, Perm(Read, Sale), false},
		{RoleOperator, Perm(Read, Mutation), false},
		{RoleOperator, Perm(Read, User), false},
		{RoleOperator, Perm(Update, Recording), false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+" "+string(tc.perm), func(t *testing.T) {
			assert.Equal(t, tc.allow, Principal{Role: tc.role}.Can(tc.perm))
		})
	}
}

func TestPermissionsSorted(t *testing.T) {
	perms := Permissions(RoleOperator)
	require.NotEmpty(t, perms)
	for i := 1; i < len(perms); i++ {
		assert.Less(t, perms[i-1], perms[i])
	}
	assert.Len(t, Permissions(RoleSuperAdmin), len(allActions)*len(allResources))
}

func TestFarmScope(t *testing.T) {
	op := Principal{UserID: 4, Role: RoleOperator, FarmIDs: []uint{3, 1}}
	assert.True(t, op.CanAccessFarm(1))
	assert.False(t, op.CanAccessFarm(2))
	assert.ErrorIs(t, op.RequireFarm(2), ErrForbidden)
	assert.NoError(t, op.RequireFarm(3))
	assert.Equal(t, "[1 3]", op.ScopeKey())

	mgr := Principal{Role: RoleManager}
	assert.True(t, mgr.CanAccessFarm(42))
	assert.Equal(t, "all", mgr.ScopeKey())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Supervisor")
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, r)

	_, err = ParseRole("supervisor")
	assert.Error(t, err)
}

func TestScopeFarmsStatements(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	sql := func(p Principal, cols ...string) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return ScopeFarms(tx.Table("feed_mutations"), p, cols...).Find(&[]map[string]any{})
		})
	}

	assert.NotContains(t, sql(Principal{Role: RoleManager}, "farm_id"), "WHERE")
	assert.Contains(t, sql(Principal{Role: RoleOperator}, "farm_id"), "1 = 0")
	assert.Contains(t, sql(Principal{Role: RoleOperator, FarmIDs: []uint{2}}, "farm_id"), "farm_id IN (2)")
	multi := sql(Principal{Role: RoleSupervisor, FarmIDs: []uint{2, 5}}, "source_farm_id", "destination_farm_id")
	assert.Contains(t, multi, "source_farm_id IN (2,5) OR destination_farm_id IN (2,5)")
}
