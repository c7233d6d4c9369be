// Package seeder fills a database with demo farms and batches whose daily
// books follow the simulated growth curve.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/growth"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
)

const (
	MinDays     = 30
	MaxDays     = 45
	DefaultDays = 35

	// feedMargin is bought on top of the simulated requirement.
	feedMargin = 0.10
)

var ErrInvalidOptions = errors.New("invalid seed options")

// Options controls one seeding run. Zero values take the defaults.
type Options struct {
	Farms        int
	CoopsPerFarm int
	Population   int
	Days         int
	Scenario     growth.Scenario
	StartDate    time.Time
	CullingRate  float64
}

func (o Options) withDefaults(now time.Time) (Options, error) {
	if o.Farms == 0 {
		o.Farms = 1
	}
	if o.CoopsPerFarm == 0 {
		o.CoopsPerFarm = 2
	}
	if o.Population == 0 {
		o.Population = 5000
	}
	if o.Days == 0 {
		o.Days = DefaultDays
	}
	if o.Scenario == "" {
		o.Scenario = growth.ScenarioNormal
	}
	if o.StartDate.IsZero() {
		o.StartDate = now.AddDate(0, 0, -o.Days)
	}
	o.StartDate = models.DateOnly(o.StartDate)

	switch {
	case o.Farms < 0 || o.CoopsPerFarm < 0 || o.Population < 0:
		return o, fmt.Errorf("%w: counts must be positive", ErrInvalidOptions)
	case o.Days < MinDays || o.Days > MaxDays:
		return o, fmt.Errorf("%w: days must be between %d and %d, got %d", ErrInvalidOptions, MinDays, MaxDays, o.Days)
	}
	if _, err := o.Scenario.MortalityFactor(); err != nil {
		return o, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return o, nil
}

// BatchSummary is the outcome of one seeded batch.
type BatchSummary struct {
	Name            string
	Farm            string
	InitialQuantity int
	FinalPopulation int
	Deaths          int
	Culled          int
	FinalWeight     float64
	FeedKg          float64
	FCR             float64
}

// Summary counts what a run seeded. Master data rows that already existed
// are counted too.
type Summary struct {
	Users           int
	Farms           int
	Coops           int
	Recordings      int
	Depletions      int
	FeedUsages      int
	FeedPurchasedKg float64
	Batches         []BatchSummary
}

// Counter receives the number of rows seeded per entity.
type Counter interface {
	AddSeeded(entity string, n int)
}

// Seeder writes demo data through the bookkeeping service.
type Seeder struct {
	db      *gorm.DB
	books   *bookkeeping.Service
	logger  *zap.Logger
	counter Counter
	now     func() time.Time
}

// Option customises the seeder.
type Option func(*Seeder)

// WithCounter reports seeded rows.
func WithCounter(c Counter) Option {
	return func(s *Seeder) { s.counter = c }
}

// WithClock replaces time.Now for the default start date.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

// New creates a seeder.
func New(db *gorm.DB, books *bookkeeping.Service, logger *zap.Logger, opts ...Option) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Seeder{db: db, books: books, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run seeds everything in one transaction. Master data is reused when it
// already exists; batches need free coops.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts, err := opts.withDefaults(s.now())
	if err != nil {
		return nil, err
	}
	days, err := growth.Simulate(growth.Params{
		InitialPopulation: opts.Population,
		InitialWeight:     growth.DefaultDOCWeight,
		Days:              opts.Days,
		Scenario:          opts.Scenario,
		StartDate:         opts.StartDate,
		CullingRate:       opts.CullingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	s.logger.Info("seeding",
		zap.Int("farms", opts.Farms),
		zap.Int("coops_per_farm", opts.CoopsPerFarm),
		zap.Int("population", opts.Population),
		zap.Int("days", opts.Days),
		zap.String("scenario", string(opts.Scenario)),
		zap.Time("start_date", opts.StartDate),
	)

	var sum *Summary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &run{tx: tx, opts: opts, days: days, sum: &Summary{}}
		if err := r.seed(ctx, s.books.WithTx(tx)); err != nil {
			return err
		}
		sum = r.sum
		return nil
	})
	if err != nil {
		s.logger.Error("seeding rolled back", zap.Error(err))
		return nil, fmt.Errorf("seed: %w", err)
	}

	if s.counter != nil {
		s.counter.AddSeeded("farm", sum.Farms)
		s.counter.AddSeeded("coop", sum.Coops)
		s.counter.AddSeeded("livestock", len(sum.Batches))
		s.counter.AddSeeded("recording", sum.Recordings)
		s.counter.AddSeeded("depletion", sum.Depletions)
		s.counter.AddSeeded("feed_usage", sum.FeedUsages)
	}
	s.logger.Info("seeding done",
		zap.Int("batches", len(sum.Batches)),
		zap.Int("recordings", sum.Recordings),
		zap.Float64("feed_purchased_kg", sum.FeedPurchasedKg),
	)
	return sum, nil
}

type run struct {
	tx   *gorm.DB
	opts Options
	days []growth.Day
	sum  *Summary

	feeds map[string]models.Feed
}

func (r *run) seed(ctx context.Context, books *bookkeeping.Service) error {
	users, err := r.seedUsers()
	if err != nil {
		return err
	}
	system := access.System(users[access.RoleSuperAdmin].ID)

	if err := r.seedFeeds(); err != nil {
		return err
	}
	supplies, err := r.seedSupplies()
	if err != nil {
		return err
	}

	totals := growth.Summarize(r.days)
	for i := 1; i <= r.opts.Farms; i++ {
		farm, coops, err := r.seedFarm(i)
		if err != nil {
			return err
		}
		if err := r.assign(farm, users); err != nil {
			return err
		}
		if err := r.buyFeed(ctx, books, system, farm, totals); err != nil {
			return err
		}
		if err := r.buySupplies(ctx, books, system, farm, supplies); err != nil {
			return err
		}
		for _, coop := range coops {
			if err := r.raiseBatch(ctx, books, system, farm, coop); err != nil {
				return err
			}
		}
	}
	return nil
}

var demoUsers = []struct {
	role  access.Role
	name  string
	email string
	phone string
}{
	{access.RoleSuperAdmin, "Super Admin", "superadmin@farmdesk.local", "6281100000001"},
	{access.RoleManager, "Farm Manager", "manager@farmdesk.local", "6281100000002"},
	{access.RoleSupervisor, "Field Supervisor", "supervisor@farmdesk.local", "6281100000003"},
	{access.RoleOperator, "Coop Operator", "operator@farmdesk.local", "6281100000004"},
}

func (r *run) seedUsers() (map[access.Role]models.User, error) {
	users := make(map[access.Role]models.User, len(demoUsers))
	for _, d := range demoUsers {
		u := models.User{Email: d.email}
		err := r.tx.Where(models.User{Email: d.email}).
			Attrs(models.User{Name: d.name, Phone: d.phone, Role: string(d.role), Active: true}).
			FirstOrCreate(&u).Error
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", d.email, err)
		}
		r.sum.Users++
		users[d.role] = u
	}
	return users, nil
}

var demoFeeds = []models.Feed{
	{Code: "BR-1", Name: "Broiler starter crumble", Phase: models.FeedPhaseStarter},
	{Code: "BR-2", Name: "Broiler grower pellet", Phase: models.FeedPhaseGrower},
	{Code: "BR-3", Name: "Broiler finisher pellet", Phase: models.FeedPhaseFinisher},
}

func (r *run) seedFeeds() error {
	r.feeds = make(map[string]models.Feed, len(demoFeeds))
	for _, d := range demoFeeds {
		f := models.Feed{}
		err := r.tx.Where(models.Feed{Code: d.Code}).Attrs(models.Feed{Name: d.Name, Unit: "kg", Phase: d.Phase}).FirstOrCreate(&f).Error
		if err != nil {
			return fmt.Errorf("seed feed %s: %w", d.Code, err)
		}
		r.feeds[d.Phase] = f
	}
	return nil
}

var demoSupplies = []struct {
	supply models.Supply
	// per1000 is the quantity bought per thousand birds placed.
	per1000 float64
}{
	{models.Supply{Code: "VAC-NDIB", Name: "ND-IB live vaccine", Unit: "vial", Category: "vaccine"}, 1},
	{models.Supply{Code: "VIT-C", Name: "Vitamin C soluble", Unit: "kg", Category: "vitamin"}, 0.5},
	{models.Supply{Code: "DIS-01", Name: "Coop disinfectant", Unit: "l", Category: "disinfectant"}, 2},
}

func (r *run) seedSupplies() ([]models.Supply, error) {
	out := make([]models.Supply, 0, len(demoSupplies))
	for _, d := range demoSupplies {
		s := models.Supply{}
		err := r.tx.Where(models.Supply{Code: d.supply.Code}).
			Attrs(models.Supply{Name: d.supply.Name, Unit: d.supply.Unit, Category: d.supply.Category}).
			FirstOrCreate(&s).Error
		if err != nil {
			return nil, fmt.Errorf("seed supply %s: %w", d.supply.Code, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *run) seedFarm(i int) (models.Farm, []models.Coop, error) {
	code := fmt.Sprintf("F-%02d", i)
	farm := models.Farm{}
	err := r.tx.Where(models.Farm{Code: code}).
		Attrs(models.Farm{Name: fmt.Sprintf("Demo Farm %d", i), Address: fmt.Sprintf("Jl. Peternakan No. %d", i), Status: models.StatusActive}).
		FirstOrCreate(&farm).Error
	if err != nil {
		return farm, nil, fmt.Errorf("seed farm %s: %w", code, err)
	}
	r.sum.Farms++

	coops := make([]models.Coop, 0, r.opts.CoopsPerFarm)
	for j := 1; j <= r.opts.CoopsPerFarm; j++ {
		c := models.Coop{}
		coopCode := fmt.Sprintf("%s-K%02d", code, j)
		err := r.tx.Where(models.Coop{FarmID: farm.ID, Code: coopCode}).
			Attrs(models.Coop{Name: fmt.Sprintf("Kandang %d", j), Capacity: r.opts.Population, Status: models.StatusActive}).
			FirstOrCreate(&c).Error
		if err != nil {
			return farm, nil, fmt.Errorf("seed coop %s: %w", coopCode, err)
		}
		r.sum.Coops++
		coops = append(coops, c)
	}
	return farm, coops, nil
}

func (r *run) assign(farm models.Farm, users map[access.Role]models.User) error {
	for _, role := range []access.Role{access.RoleSupervisor, access.RoleOperator} {
		u := users[role]
		err := r.tx.Where(models.FarmOperator{FarmID: farm.ID, UserID: u.ID}).FirstOrCreate(&models.FarmOperator{}).Error
		if err != nil {
			return fmt.Errorf("assign %s to %s: %w", u.Email, farm.Code, err)
		}
	}
	return nil
}

// buyFeed purchases the simulated need of every phase for all coops of the
// farm, plus the margin, on the start date.
func (r *run) buyFeed(ctx context.Context, books *bookkeeping.Service, p access.Principal, farm models.Farm, totals growth.Totals) error {
	for _, phase := range []string{models.FeedPhaseStarter, models.FeedPhaseGrower, models.FeedPhaseFinisher} {
		need := totals.FeedByPhase[phase] * float64(r.opts.CoopsPerFarm)
		if need <= 0 {
			continue
		}
		qty := math.Ceil(need * (1 + feedMargin))
		_, err := books.PurchaseFeed(ctx, p, bookkeeping.FeedPurchaseInput{
			Invoice:      fmt.Sprintf("SEED-%s-%s", farm.Code, r.feeds[phase].Code),
			Date:         models.NewDate(r.opts.StartDate),
			FarmID:       farm.ID,
			FeedID:       r.feeds[phase].ID,
			Supplier:     "PT Pakan Nusantara",
			Quantity:     qty,
			PricePerUnit: decimal.NewFromInt(8500),
		})
		if err != nil {
			return fmt.Errorf("buy %s feed for %s: %w", phase, farm.Code, err)
		}
		r.sum.FeedPurchasedKg += qty
	}
	return nil
}

func (r *run) buySupplies(ctx context.Context, books *bookkeeping.Service, p access.Principal, farm models.Farm, supplies []models.Supply) error {
	birds := float64(r.opts.Population * r.opts.CoopsPerFarm)
	for i, s := range supplies {
		qty := math.Ceil(birds / 1000 * demoSupplies[i].per1000)
		if qty <= 0 {
			continue
		}
		_, err := books.PurchaseSupply(ctx, p, bookkeeping.SupplyPurchaseInput{
			Invoice:      fmt.Sprintf("SEED-%s-%s", farm.Code, s.Code),
			Date:         models.NewDate(r.opts.StartDate),
			FarmID:       farm.ID,
			SupplyID:     s.ID,
			Supplier:     "CV Sehat Ternak",
			Quantity:     qty,
			PricePerUnit: decimal.NewFromInt(25000),
		})
		if err != nil {
			return fmt.Errorf("buy %s for %s: %w", s.Code, farm.Code, err)
		}
	}
	return nil
}

// raiseBatch places a batch in the coop and books every simulated day.
func (r *run) raiseBatch(ctx context.Context, books *bookkeeping.Service, p access.Principal, farm models.Farm, coop models.Coop) error {
	batch, err := books.PurchaseLivestock(ctx, p, bookkeeping.LivestockPurchaseInput{
		Invoice:       fmt.Sprintf("SEED-%s", coop.Code),
		Date:          models.NewDate(r.opts.StartDate),
		FarmID:        farm.ID,
		CoopID:        coop.ID,
		Supplier:      "PT Bibit Unggul",
		Strain:        "Cobb 500",
		Quantity:      r.opts.Population,
		InitialWeight: growth.DefaultDOCWeight,
		PricePerUnit:  decimal.NewFromInt(6500),
	})
	if err != nil {
		return fmt.Errorf("place batch in %s: %w", coop.Code, err)
	}

	out := BatchSummary{Name: batch.Name, Farm: farm.Code, InitialQuantity: batch.InitialQuantity}
	for _, d := range r.days {
		in := bookkeeping.RecordingInput{
			LivestockID: batch.ID,
			Date:        models.NewDate(d.Date),
			Mortality:   d.Deaths,
			Culling:     d.Culled,
			AvgWeight:   d.AvgWeight,
		}
		if d.FeedKg > 0 {
			in.Feeds = []bookkeeping.FeedLine{{FeedID: r.feeds[growth.FeedPhaseFor(d.Day)].ID, Quantity: d.FeedKg}}
			r.sum.FeedUsages++
		}
		rec, err := books.RecordDaily(ctx, p, in)
		if err != nil {
			return fmt.Errorf("record %s day %d: %w", batch.Name, d.Day, err)
		}
		r.sum.Recordings++
		if d.Deaths > 0 {
			r.sum.Depletions++
		}
		if d.Culled > 0 {
			r.sum.Depletions++
		}
		out.Deaths += d.Deaths
		out.Culled += d.Culled
		out.FeedKg += rec.FeedKg
		out.FinalPopulation = rec.StockEnd
		out.FinalWeight = rec.AvgWeight
		out.FCR = rec.FCR
	}
	r.sum.Batches = append(r.sum.Batches, out)
	return nil
}
