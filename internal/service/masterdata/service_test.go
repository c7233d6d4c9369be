package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/database/dbtest"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
)

type invalidations []string

func (i *invalidations) Invalidate(_ context.Context, table string) error {
	*i = append(*i, table)
	return nil
}

var (
	admin    = access.System(1)
	operator = access.Principal{UserID: 9, Role: access.RoleOperator, FarmIDs: []uint{1}}
)

func TestFarmLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	inv := &invalidations{}
	svc := NewService(db, inv, nil)
	ctx := context.Background()

	f, err := svc.CreateFarm(ctx, admin, FarmInput{Code: " f-01 ", Name: "North Hill"})
	require.NoError(t, err)
	assert.Equal(t, "F-01", f.Code)
	assert.Equal(t, models.StatusActive, f.Status)
	assert.Contains(t, *inv, "farms")

	_, err = svc.CreateFarm(ctx, admin, FarmInput{Code: "F-01", Name: "Again"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.CreateFarm(ctx, admin, FarmInput{Code: "F-02"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateFarm(ctx, operator, FarmInput{Code: "F-03", Name: "Nope"})
	assert.ErrorIs(t, err, access.ErrForbidden)

	got, err := svc.GetFarm(ctx, operator, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "North Hill", got.Name)

	f, err = svc.UpdateFarm(ctx, admin, f.ID, FarmInput{Code: "F-01", Name: "North Hill Estate", Status: models.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, f.Status)
	_, err = svc.UpdateFarm(ctx, admin, f.ID, FarmInput{Code: "F-01", Name: "x", Status: models.StatusInUse})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.DeleteFarm(ctx, admin, f.ID))
	_, err = svc.GetFarm(ctx, admin, f.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.CreateFarm(ctx, admin, FarmInput{Code: "F-01", Name: "Reborn"})
	assert.ErrorIs(t, err, ErrConflict, "codes of deleted farms stay reserved")
}

func TestFarmScopeForOperators(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	north, err := svc.CreateFarm(ctx, admin, FarmInput{Code: "F-01", Name: "North"})
	require.NoError(t, err)
	south, err := svc.CreateFarm(ctx, admin, FarmInput{Code: "F-02", Name: "South"})
	require.NoError(t, err)
	require.Equal(t, uint(1), north.ID)

	_, err = svc.GetFarm(ctx, operator, south.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	coop, err := svc.CreateCoop(ctx, admin, CoopInput{FarmID: south.ID, Code: "K-01", Name: "Kandang 1", Capacity: 5000})
	require.NoError(t, err)
	_, err = svc.GetCoop(ctx, operator, coop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	supervisor := access.Principal{UserID: 4, Role: access.RoleSupervisor, FarmIDs: []uint{north.ID}}
	_, err = svc.GetCoop(ctx, supervisor, coop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCoopRules(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	farm, err := svc.CreateFarm(ctx, admin, FarmInput{Code: "F-01", Name: "North"})
	require.NoError(t, err)
	other, err := svc.CreateFarm(ctx, admin, FarmInput{Code: "F-02", Name: "South"})
	require.NoError(t, err)

	coop, err := svc.CreateCoop(ctx, admin, CoopInput{FarmID: farm.ID, Code: "k-01", Name: "Kandang 1", Capacity: 5000})
	require.NoError(t, err)
	assert.Equal(t, "K-01", coop.Code)

	_, err = svc.CreateCoop(ctx, admin, CoopInput{FarmID: farm.ID, Code: "K-01", Name: "Dup"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.CreateCoop(ctx, admin, CoopInput{FarmID: other.ID, Code: "K-01", Name: "Same code, other farm"})
	require.NoError(t, err)
	_, err = svc.CreateCoop(ctx, admin, CoopInput{FarmID: 99, Code: "K-09", Name: "Ghost"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.UpdateCoop(ctx, admin, coop.ID, CoopInput{FarmID: other.ID, Code: "K-01", Name: "Moved"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	batch := models.Livestock{FarmID: farm.ID, CoopID: coop.ID, Name: "B-1", StartDate: time.Now(), InitialQuantity: 100, Status: models.StatusActive}
	require.NoError(t, db.Create(&batch).Error)
	require.NoError(t, db.Model(coop).Update("status", models.StatusInUse).Error)

	_, err = svc.UpdateCoop(ctx, admin, coop.ID, CoopInput{FarmID: farm.ID, Code: "K-01", Name: "Kandang 1", Status: models.StatusInactive})
	assert.ErrorIs(t, err, ErrConflict)
	updated, err := svc.UpdateCoop(ctx, admin, coop.ID, CoopInput{FarmID: farm.ID, Code: "K-01", Name: "Kandang Utama", Capacity: 6000})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInUse, updated.Status)
	assert.Equal(t, 6000, updated.Capacity)

	assert.ErrorIs(t, svc.DeleteCoop(ctx, admin, coop.ID), ErrConflict)
	assert.ErrorIs(t, svc.DeleteFarm(ctx, admin, farm.ID), ErrConflict)
	_, err = svc.UpdateFarm(ctx, admin, farm.ID, FarmInput{Code: "F-01", Name: "North", Status: models.StatusInactive})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFeedsAndSupplies(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	feed, err := svc.CreateFeed(ctx, admin, FeedInput{Code: "br-1", Name: "Starter", Phase: models.FeedPhaseStarter})
	require.NoError(t, err)
	assert.Equal(t, "kg", feed.Unit)
	_, err = svc.CreateFeed(ctx, admin, FeedInput{Code: "BR-9", Name: "Odd", Phase: "layer"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateFeed(ctx, admin, FeedInput{Code: "BR-1", Name: "Dup"})
	assert.ErrorIs(t, err, ErrConflict)

	feed, err = svc.UpdateFeed(ctx, admin, feed.ID, FeedInput{Code: "BR-1", Name: "Starter crumble", Phase: models.FeedPhaseStarter})
	require.NoError(t, err)
	assert.Equal(t, "Starter crumble", feed.Name)

	got, err := svc.GetFeed(ctx, operator, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, feed.Code, got.Code)

	lot := models.FeedStock{FarmID: 1, FeedID: feed.ID, SourceType: models.SourcePurchase, SourceID: 1, Date: time.Now(), QuantityIn: 10}
	require.NoError(t, db.Create(&lot).Error)
	assert.ErrorIs(t, svc.DeleteFeed(ctx, admin, feed.ID), ErrConflict)
	require.NoError(t, db.Model(&lot).Update("quantity_used", 10).Error)
	require.NoError(t, svc.DeleteFeed(ctx, admin, feed.ID))
	assert.ErrorIs(t, svc.DeleteFeed(ctx, admin, feed.ID), store.ErrNotFound)

	sp, err := svc.CreateSupply(ctx, admin, SupplyInput{Code: "vit-c", Name: "Vitamin C", Category: "vitamin"})
	require.NoError(t, err)
	assert.Equal(t, "VIT-C", sp.Code)
	assert.Equal(t, "pcs", sp.Unit)
	sp, err = svc.UpdateSupply(ctx, admin, sp.ID, SupplyInput{Code: "VIT-C", Name: "Vitamin C soluble", Unit: "kg"})
	require.NoError(t, err)
	assert.Equal(t, "kg", sp.Unit)
	_, err = svc.CreateSupply(ctx, operator, SupplyInput{Code: "X", Name: "X"})
	assert.ErrorIs(t, err, access.ErrForbidden)
	require.NoError(t, svc.DeleteSupply(ctx, admin, sp.ID))
	_, err = svc.GetSupply(ctx, admin, sp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAssignOperators(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	farm, err := svc.CreateFarm(ctx, admin, FarmInput{Code: "F-01", Name: "North"})
	require.NoError(t, err)
	users := []models.User{
		{Name: "Sari", Email: "sari@example.com", Role: string(access.RoleOperator), Active: true},
		{Name: "Dewi", Email: "dewi@example.com", Role: string(access.RoleSupervisor), Active: true},
	}
	require.NoError(t, db.Create(&users).Error)

	require.NoError(t, svc.AssignOperators(ctx, admin, farm.ID, []uint{users[1].ID, users[0].ID, users[0].ID}))
	var n int64
	require.NoError(t, db.Model(&models.FarmOperator{}).Where("farm_id = ?", farm.ID).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	assert.ErrorIs(t, svc.AssignOperators(ctx, admin, farm.ID, []uint{users[0].ID, 404}), ErrInvalidInput)
	assert.ErrorIs(t, svc.AssignOperators(ctx, operator, farm.ID, nil), access.ErrForbidden)
	assert.ErrorIs(t, svc.AssignOperators(ctx, admin, 77, nil), store.ErrNotFound)
}
