package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// FeedInput creates or updates a feed.
type FeedInput struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Unit        string `json:"unit"`
	Phase       string `json:"phase"`
	Description string `json:"description"`
}

// SupplyInput creates or updates a supply.
type SupplyInput struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

func (in *FeedInput) normalize() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if in.Unit == "" {
		in.Unit = "kg"
	}
	if err := required(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return err
	}
	switch in.Phase {
	case "", models.FeedPhaseStarter, models.FeedPhaseGrower, models.FeedPhaseFinisher:
		return nil
	}
	return fmt.Errorf("%w: unknown feed phase %q", ErrInvalidInput, in.Phase)
}

func (in *SupplyInput) normalize() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if in.Unit == "" {
		in.Unit = "pcs"
	}
	return required(map[string]string{"code": in.Code, "name": in.Name})
}

// GetFeed loads a feed.
func (s *Service) GetFeed(ctx context.Context, p access.Principal, id uint) (*models.Feed, error) {
	if err := p.Require(access.Perm(access.Read, access.Feed)); err != nil {
		return nil, err
	}
	return s.feeds.Get(ctx, id)
}

// CreateFeed adds a feed.
func (s *Service) CreateFeed(ctx context.Context, p access.Principal, in FeedInput) (*models.Feed, error) {
	if err := p.Require(access.Perm(access.Create, access.Feed)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.uniqueCode(ctx, &models.Feed{}, "feed", in.Code, 0); err != nil {
		return nil, err
	}
	f := &models.Feed{Code: in.Code, Name: in.Name, Unit: in.Unit, Phase: in.Phase, Description: in.Description}
	f.Stamp(p.UserID)
	if err := s.feeds.Create(ctx, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "feeds")
	return f, nil
}

// UpdateFeed changes a feed.
func (s *Service) UpdateFeed(ctx context.Context, p access.Principal, id uint, in FeedInput) (*models.Feed, error) {
	if err := p.Require(access.Perm(access.Update, access.Feed)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f, err := s.feeds.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.uniqueCode(ctx, &models.Feed{}, "feed", in.Code, id); err != nil {
		return nil, err
	}
	f.Code, f.Name, f.Unit, f.Phase, f.Description = in.Code, in.Name, in.Unit, in.Phase, in.Description
	f.Stamp(p.UserID)
	if err := s.feeds.Save(ctx, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "feeds")
	return f, nil
}

// DeleteFeed soft-deletes a feed that no farm holds in stock.
func (s *Service) DeleteFeed(ctx context.Context, p access.Principal, id uint) error {
	if err := p.Require(access.Perm(access.Delete, access.Feed)); err != nil {
		return err
	}
	if err := s.noStock(ctx, &models.FeedStock{}, "feed_id = ?", id); err != nil {
		return err
	}
	if err := s.feeds.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, "feeds")
	return nil
}

// GetSupply loads a supply.
func (s *Service) GetSupply(ctx context.Context, p access.Principal, id uint) (*models.Supply, error) {
	if err := p.Require(access.Perm(access.Read, access.Supply)); err != nil {
		return nil, err
	}
	return s.supplies.Get(ctx, id)
}

// CreateSupply adds a supply.
func (s *Service) CreateSupply(ctx context.Context, p access.Principal, in SupplyInput) (*models.Supply, error) {
	if err := p.Require(access.Perm(access.Create, access.Supply)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.uniqueCode(ctx, &models.Supply{}, "supply", in.Code, 0); err != nil {
		return nil, err
	}
	sp := &models.Supply{Code: in.Code, Name: in.Name, Unit: in.Unit, Category: in.Category}
	sp.Stamp(p.UserID)
	if err := s.supplies.Create(ctx, sp); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "supplies")
	return sp, nil
}

// UpdateSupply changes a supply.
func (s *Service) UpdateSupply(ctx context.Context, p access.Principal, id uint, in SupplyInput) (*models.Supply, error) {
	if err := p.Require(access.Perm(access.Update, access.Supply)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	sp, err := s.supplies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.uniqueCode(ctx, &models.Supply{}, "supply", in.Code, id); err != nil {
		return nil, err
	}
	sp.Code, sp.Name, sp.Unit, sp.Category = in.Code, in.Name, in.Unit, in.Category
	sp.Stamp(p.UserID)
	if err := s.supplies.Save(ctx, sp); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "supplies")
	return sp, nil
}

// DeleteSupply soft-deletes a supply that no farm holds in stock.
func (s *Service) DeleteSupply(ctx context.Context, p access.Principal, id uint) error {
	if err := p.Require(access.Perm(access.Delete, access.Supply)); err != nil {
		return err
	}
	if err := s.noStock(ctx, &models.SupplyStock{}, "supply_id = ?", id); err != nil {
		return err
	}
	if err := s.supplies.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, "supplies")
	return nil
}

func (s *Service) uniqueCode(ctx context.Context, model any, what, code string, exceptID uint) error {
	taken, err := s.codeTaken(ctx, model, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s code %s is taken", ErrConflict, what, code)
	}
	return nil
}

func (s *Service) noStock(ctx context.Context, lot any, query string, args ...any) error {
	var n int64
	err := s.db.WithContext(ctx).Model(lot).
		Where(query, args...).
		Where("quantity_in - quantity_used - quantity_mutated > ?", 1e-9).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("count stock lots: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d lots still hold stock", ErrConflict, n)
	}
	return nil
}
