package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/database/dbtest"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/internal/service/reporting"
)

const operatorPhone = "6281200000004"

func newDispatcher(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	north := models.Farm{Code: "F-01", Name: "North Hill"}
	south := models.Farm{Code: "F-02", Name: "South Creek"}
	require.NoError(t, db.Create(&north).Error)
	require.NoError(t, db.Create(&south).Error)
	coops := []models.Coop{
		{FarmID: north.ID, Code: "K-01", Name: "Kandang 1", Capacity: 5000},
		{FarmID: south.ID, Code: "K-11", Name: "Kandang 11", Capacity: 5000},
	}
	require.NoError(t, db.Create(&coops).Error)
	feed := models.Feed{Code: "BR-1", Name: "Starter", Phase: models.FeedPhaseStarter}
	require.NoError(t, db.Create(&feed).Error)

	users := []models.User{
		{Name: "Sari", Email: "sari@example.com", Phone: "+" + operatorPhone, Role: string(access.RoleOperator), Active: true},
		{Name: "Gone", Email: "gone@example.com", Phone: "6281299999999", Role: string(access.RoleOperator), Active: false},
	}
	require.NoError(t, db.Create(&users).Error)
	require.NoError(t, db.Model(&users[1]).Update("active", false).Error)
	require.NoError(t, db.Create(&models.FarmOperator{FarmID: north.ID, UserID: users[0].ID}).Error)

	books := bookkeeping.NewService(db, nil, bookkeeping.WithClock(clock))
	admin := access.System(0)
	start := models.NewDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err := books.PurchaseLivestock(ctx, admin, bookkeeping.LivestockPurchaseInput{
		Date: start, FarmID: north.ID, CoopID: coops[0].ID, Name: "B-NORTH", Quantity: 1000,
	})
	require.NoError(t, err)
	_, err = books.PurchaseLivestock(ctx, admin, bookkeeping.LivestockPurchaseInput{
		Date: start, FarmID: south.ID, CoopID: coops[1].ID, Name: "B-SOUTH", Quantity: 1000,
	})
	require.NoError(t, err)
	_, err = books.PurchaseFeed(ctx, admin, bookkeeping.FeedPurchaseInput{
		Date: start, FarmID: north.ID, FeedID: feed.ID, Quantity: 100,
	})
	require.NoError(t, err)

	reports := reporting.NewService(db, nil, reporting.WithClock(clock))
	svc := NewService(books, reports, store.NewUsers(db), store.New[models.Feed](db), nil)
	return svc, db
}

func run(t *testing.T, svc *Service, text, sender string) (string, error) {
	t.Helper()
	return svc.HandleCommand(context.Background(), models.ParseCommand(text), sender)
}

func TestMortalityAndCull(t *testing.T) {
	svc, db := newDispatcher(t)

	reply, err := run(t, svc, "/mati b-north 12 heat stress", operatorPhone)
	require.NoError(t, err)
	assert.Contains(t, reply, "Mortality logged for B-NORTH on 2026-03-10: 12 birds.")
	assert.Contains(t, reply, "Reason: heat stress.")
	assert.Contains(t, reply, "Population now 988")

	reply, err = run(t, svc, "/cull B-NORTH 3", operatorPhone)
	require.NoError(t, err)
	assert.Contains(t, reply, "Culling logged")

	var batch models.Livestock
	require.NoError(t, db.Where("name = ?", "B-NORTH").Take(&batch).Error)
	assert.Equal(t, 12, batch.Depleted)
	assert.Equal(t, 3, batch.Culled)

	_, err = run(t, svc, "/mortality B-NORTH 5000", operatorPhone)
	assert.ErrorIs(t, err, bookkeeping.ErrInsufficientPopulation)
	_, err = run(t, svc, "/mortality B-NORTH lots", operatorPhone)
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = run(t, svc, "/mortality B-SOUTH 1", operatorPhone)
	assert.ErrorIs(t, err, reporting.ErrBatchNotFound, "batches of other farms are invisible")
}

func TestFeedCommand(t *testing.T) {
	svc, db := newDispatcher(t)

	reply, err := run(t, svc, "/pakan B-NORTH br-1 42.5", operatorPhone)
	require.NoError(t, err)
	assert.Equal(t, "Feed usage saved for B-NORTH on 2026-03-10: 42.50 kg BR-1.", reply)

	var used float64
	require.NoError(t, db.Model(&models.FeedStock{}).Select("SUM(quantity_used)").Scan(&used).Error)
	assert.InDelta(t, 42.5, used, 1e-9)

	_, err = run(t, svc, "/feed B-NORTH BR-1 500", operatorPhone)
	assert.ErrorIs(t, err, bookkeeping.ErrInsufficientStock)
	_, err = run(t, svc, "/feed B-NORTH BR-9 1", operatorPhone)
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = run(t, svc, "/feed B-NORTH 1", operatorPhone)
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

type recordingInvalidator struct {
	tables []string
	err    error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, table string) error {
	r.tables = append(r.tables, table)
	return r.err
}

func TestWritesInvalidateGridCounts(t *testing.T) {
	svc, _ := newDispatcher(t)
	cache := &recordingInvalidator{}
	WithInvalidator(cache)(svc)

	_, err := run(t, svc, "/mortality B-NORTH 3", operatorPhone)
	require.NoError(t, err)
	_, err = run(t, svc, "/feed B-NORTH BR-1 10", operatorPhone)
	require.NoError(t, err)
	_, err = run(t, svc, "/status B-NORTH", operatorPhone)
	require.NoError(t, err)
	assert.Equal(t, []string{"depletions", "feed-usages"}, cache.tables)

	_, err = run(t, svc, "/feed B-NORTH BR-1 500", operatorPhone)
	assert.ErrorIs(t, err, bookkeeping.ErrInsufficientStock)
	assert.Len(t, cache.tables, 2, "failed writes leave the cache alone")

	cache.err = errors.New("redis down")
	reply, err := run(t, svc, "/cull B-NORTH 1", operatorPhone)
	require.NoError(t, err, "invalidation failures do not fail the command")
	assert.Contains(t, reply, "Culling logged for B-NORTH")
	assert.Equal(t, "depletions", cache.tables[len(cache.tables)-1])
}

func TestStatusHelpAndSenders(t *testing.T) {
	svc, _ := newDispatcher(t)

	reply, err := run(t, svc, "/status B-NORTH", operatorPhone)
	require.NoError(t, err)
	assert.Contains(t, reply, "B-NORTH (North Hill)")
	assert.Contains(t, reply, "Day 10, population 1000 of 1000")

	reply, err = run(t, svc, "help", "")
	require.NoError(t, err)
	assert.Equal(t, HelpText, reply)

	_, err = run(t, svc, "/eggs 10", operatorPhone)
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
	_, err = run(t, svc, "/status B-NORTH", "6200000000")
	assert.ErrorIs(t, err, ErrUnknownSender)
	_, err = run(t, svc, "/status B-NORTH", "6281299999999")
	assert.ErrorIs(t, err, ErrUnknownSender, "inactive users are refused")
}

func TestReply(t *testing.T) {
	assert.Empty(t, Reply(nil))
	assert.Contains(t, Reply(ErrUnsupportedCommand), "/mortality")
	assert.Contains(t, Reply(ErrUnknownSender), "not registered")
	assert.Contains(t, Reply(reporting.ErrBatchNotFound), "No open batch")
	assert.Contains(t, Reply(access.ErrForbidden), "not allowed")
	assert.Contains(t, Reply(errors.New("db down")), "Something went wrong")
}
