// Package bookkeeping records the stock and livestock movements of the farms:
// purchases, mutations between farms, depletions, sales, feed usage and daily
// recordings. Every operation runs in one transaction and is scoped to the
// farms of the acting principal.
package bookkeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrFarmNotAllowed         = errors.New("farm not allowed")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientPopulation = errors.New("insufficient population")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateRecording     = errors.New("recording already exists for this date")
	ErrCoopUnavailable        = errors.New("coop unavailable")
	ErrBatchClosed            = errors.New("livestock batch is closed")
)

// Observer records the outcome of operations.
type Observer interface {
	ObserveOperation(operation string, err error)
}

// Service implements the bookkeeping operations.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithObserver reports every operation.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the bookkeeping service.
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

// WithTx returns a service whose operations join tx. Nested operations run
// in savepoints, so a failed operation leaves tx usable.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.db = tx
	return &clone
}

func (s *Service) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if s.observer != nil {
		s.observer.ObserveOperation(op, err)
	}
	if err != nil {
		s.logger.Debug("bookkeeping operation failed", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func authorize(p access.Principal, perm access.Permission, farmIDs ...uint) error {
	if err := p.Require(perm); err != nil {
		return err
	}
	for _, id := range farmIDs {
		if !p.CanAccessFarm(id) {
			return fmt.Errorf("%w: farm %d", ErrFarmNotAllowed, id)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// day defaults an empty date to today.
func (s *Service) day(d models.Date) models.Date {
	if d.IsZero() {
		return models.NewDate(s.now())
	}
	return models.NewDate(d.Time)
}

func first[T any](tx *gorm.DB, what string, id uint, lock bool) (*T, error) {
	var v T
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
		}
		return nil, fmt.Errorf("load %s %d: %w", what, id, err)
	}
	return &v, nil
}

func loadFarm(tx *gorm.DB, id uint) (*models.Farm, error) {
	f, err := first[models.Farm](tx, "farm", id, false)
	if err != nil {
		return nil, err
	}
	if f.Status == models.StatusInactive {
		return nil, invalid("farm %s is inactive", f.Code)
	}
	return f, nil
}

// loadBatch locks the batch row and checks that it is still open.
func loadBatch(tx *gorm.DB, id uint) (*models.Livestock, error) {
	l, err := first[models.Livestock](tx, "livestock", id, true)
	if err != nil {
		return nil, err
	}
	if l.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: %s", ErrBatchClosed, l.Name)
	}
	return l, nil
}

func addCounters(tx *gorm.DB, livestockID, userID uint, counters map[string]int) error {
	updates := map[string]any{}
	if userID != 0 {
		updates["updated_by"] = userID
	}
	for col, n := range counters {
		updates[col] = gorm.Expr(col+" + ?", n)
	}
	if err := tx.Model(&models.Livestock{}).Where("id = ?", livestockID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update livestock %d counters: %w", livestockID, err)
	}
	return nil
}

func checkDay(l *models.Livestock, d models.Date) error {
	if d.Before(models.DateOnly(l.StartDate)) {
		return invalid("%s is before the start of %s", d.Format(time.DateOnly), l.Name)
	}
	return nil
}

// checkNotRecorded refuses movements dated on or before the latest daily
// recording of the batch. Recorded days are closed.
func checkNotRecorded(tx *gorm.DB, l *models.Livestock, d models.Date) error {
	var last models.Recording
	err := tx.Select("date").Where("livestock_id = ? AND date >= ?", l.ID, d.Time).Order("date DESC").Take(&last).Error
	switch {
	case err == nil:
		return invalid("%s is recorded through %s", l.Name, models.DateOnly(last.Date).Format(time.DateOnly))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("check recordings of %s: %w", l.Name, err)
	}
}
