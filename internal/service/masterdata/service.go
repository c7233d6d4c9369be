// Package masterdata administers farms, coops, feeds and supplies.
package masterdata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
)

var (
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Invalidator drops cached grid counts of a table after writes.
type Invalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// Service implements master data administration.
type Service struct {
	db       *gorm.DB
	farms    *store.Repository[models.Farm]
	coops    *store.Repository[models.Coop]
	feeds    *store.Repository[models.Feed]
	supplies *store.Repository[models.Supply]
	users    *store.Users
	cache    Invalidator
	logger   *zap.Logger
}

// NewService creates the service. cache may be nil.
func NewService(db *gorm.DB, cache Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		farms:    store.New[models.Farm](db),
		coops:    store.New[models.Coop](db),
		feeds:    store.New[models.Feed](db),
		supplies: store.New[models.Supply](db),
		users:    store.NewUsers(db),
		cache:    cache,
		logger:   logger,
	}
}

func (s *Service) invalidate(ctx context.Context, tables ...string) {
	if s.cache == nil {
		return
	}
	for _, t := range tables {
		if err := s.cache.Invalidate(ctx, t); err != nil {
			s.logger.Warn("invalidate grid counts", zap.String("table", t), zap.Error(err))
		}
	}
}

// codeTaken reports whether another row of the model, deleted or not, uses code.
func (s *Service) codeTaken(ctx context.Context, model any, code string, exceptID uint, extra ...any) (bool, error) {
	q := s.db.WithContext(ctx).Unscoped().Model(model).Where("code = ? AND id <> ?", code, exceptID)
	if len(extra) > 0 {
		q = q.Where(extra[0], extra[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check code %q: %w", code, err)
	}
	return n > 0, nil
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func validStatus(status string, allowed ...string) error {
	if slices.Contains(allowed, status) {
		return nil
	}
	return fmt.Errorf("%w: status %q, want one of %s", ErrInvalidInput, status, strings.Join(allowed, ", "))
}
