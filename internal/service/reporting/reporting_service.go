package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const dateLayout = "2006-01-02"

// ErrBatchNotFound is returned when no visible batch matches a reference.
var ErrBatchNotFound = errors.New("batch not found")

// Archive stores report snapshots.
type Archive interface {
	SaveBatchReports(ctx context.Context, reports []models.BatchReport) error
}

// Exporter publishes report snapshots, e.g. to a spreadsheet.
type Exporter interface {
	AppendBatchReports(ctx context.Context, reports []models.BatchReport) error
}

// Observer records report runs.
type Observer interface {
	ObserveReport(err error)
}

// Service computes batch performance and the daily digest.
type Service struct {
	db       *gorm.DB
	archive  Archive
	exporter Exporter
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithArchive stores every daily report.
func WithArchive(a Archive) Option { return func(s *Service) { s.archive = a } }

// WithExporter publishes every daily report.
func WithExporter(e Exporter) Option { return func(s *Service) { s.exporter = e } }

// WithObserver reports daily runs.
func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a new reporting service instance.
func NewService(db *gorm.DB, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveBatch finds an open batch visible to the principal by id or by name.
func (s *Service) ResolveBatch(ctx context.Context, p access.Principal, ref string) (*models.Livestock, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrBatchNotFound
	}
	q := access.ScopeFarms(s.db.WithContext(ctx), p, "farm_id").
		Where("status = ?", models.StatusActive)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("LOWER(name) = ?", strings.ToLower(ref))
	}
	var l models.Livestock
	if err := q.Order("id DESC").Take(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, ref)
		}
		return nil, fmt.Errorf("resolve batch %s: %w", ref, err)
	}
	return &l, nil
}

// BatchPerformance reports the current performance of one batch.
func (s *Service) BatchPerformance(ctx context.Context, p access.Principal, livestockID uint) (*models.BatchReport, error) {
	if err := p.Require(access.Perm(access.Read, access.Report)); err != nil {
		return nil, err
	}
	var l models.Livestock
	if err := s.db.WithContext(ctx).First(&l, livestockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrBatchNotFound, livestockID)
		}
		return nil, fmt.Errorf("load livestock %d: %w", livestockID, err)
	}
	if !p.CanAccessFarm(l.FarmID) {
		return nil, fmt.Errorf("%w: %d", ErrBatchNotFound, livestockID)
	}
	return s.report(ctx, l, models.DateOnly(s.now()))
}

// DailySummary builds the reports of every open batch, archives and exports
// them when configured, and returns a text digest.
func (s *Service) DailySummary(ctx context.Context, date time.Time) (string, error) {
	date = models.DateOnly(date)
	reports, err := s.dailyReports(ctx, date)
	if s.observer != nil {
		s.observer.ObserveReport(err)
	}
	if err != nil {
		return "", err
	}

	if len(reports) > 0 && s.archive != nil {
		if err := s.archive.SaveBatchReports(ctx, reports); err != nil {
			s.logger.Error("archive batch reports", zap.Error(err))
		}
	}
	if len(reports) > 0 && s.exporter != nil {
		if err := s.exporter.AppendBatchReports(ctx, reports); err != nil {
			s.logger.Error("export batch reports", zap.Error(err))
		}
	}
	return Digest(date, reports), nil
}

func (s *Service) dailyReports(ctx context.Context, date time.Time) ([]models.BatchReport, error) {
	var batches []models.Livestock
	err := s.db.WithContext(ctx).
		Where("status = ? AND start_date <= ?", models.StatusActive, date).
		Order("farm_id, name").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("list open batches: %w", err)
	}
	reports := make([]models.BatchReport, 0, len(batches))
	for _, l := range batches {
		r, err := s.report(ctx, l, date)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func (s *Service) report(ctx context.Context, l models.Livestock, asOf time.Time) (*models.BatchReport, error) {
	db := s.db.WithContext(ctx)

	var farm models.Farm
	if err := db.Unscoped().Select("id", "name").First(&farm, l.FarmID).Error; err != nil {
		return nil, fmt.Errorf("load farm %d: %w", l.FarmID, err)
	}

	var last models.Recording
	err := db.Where("livestock_id = ? AND date <= ?", l.ID, asOf).Order("date DESC").Take(&last).Error
	hasRecording := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load latest recording of %s: %w", l.Name, err)
	}

	age := l.AgeOn(asOf)
	weight := l.InitialWeight
	var cumFeed, fcr float64
	if hasRecording {
		weight, cumFeed, fcr = last.AvgWeight, last.CumulativeFeed, last.FCR
		if l.Status == models.StatusClosed {
			age = last.Age
		}
	}

	placed := l.InitialQuantity + l.MutatedIn
	r := &models.BatchReport{
		Date:           asOf,
		LivestockID:    l.ID,
		LivestockName:  l.Name,
		FarmID:         l.FarmID,
		FarmName:       farm.Name,
		Age:            age,
		Initial:        l.InitialQuantity,
		Population:     l.Population(),
		Mortality:      l.Depleted,
		Culling:        l.Culled,
		Sold:           l.Sold,
		MortalityRate:  round(percent(l.Depleted, placed), 2),
		Liveability:    round(100-percent(l.Depleted+l.Culled, placed), 2),
		AvgWeight:      round(weight, 3),
		CumulativeFeed: round(cumFeed, 2),
		FCR:            round(fcr, 3),
		CreatedAt:      s.now().UTC(),
	}
	r.IP = round(PerformanceIndex(r.Liveability, weight, fcr, age), 0)
	return r, nil
}

// PerformanceIndex is the broiler performance index:
// liveability% × weight kg ÷ (FCR × age days) × 100. It is 0 when undefined.
func PerformanceIndex(liveability, weightKg, fcr float64, age int) float64 {
	if fcr <= 0 || age <= 0 {
		return 0
	}
	return liveability * weightKg / (fcr * float64(age)) * 100
}

// Digest formats reports as a WhatsApp-friendly message.
func Digest(date time.Time, reports []models.BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s", date.Format(dateLayout))
	if len(reports) == 0 {
		b.WriteString("\nNo open batches.")
		return b.String()
	}
	var pop, dead int
	for _, r := range reports {
		fmt.Fprintf(&b, "\n- %s / %s: day %d, pop %d, mort %.2f%%, BW %.3f kg, FCR %.3f, IP %.0f",
			r.FarmName, r.LivestockName, r.Age, r.Population, r.MortalityRate, r.AvgWeight, r.FCR, r.IP)
		pop += r.Population
		dead += r.Mortality
	}
	fmt.Fprintf(&b, "\nTotal: %d batches, %d birds, %d dead.", len(reports), pop, dead)
	return b.String()
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
