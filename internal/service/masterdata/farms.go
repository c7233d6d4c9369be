package masterdata

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
)

// FarmInput creates or updates a farm. An empty status keeps the current one.
type FarmInput struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Status  string `json:"status"`
}

// CoopInput creates or updates a coop.
type CoopInput struct {
	FarmID   uint   `json:"farm_id" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"gte=0"`
	Status   string `json:"status"`
}

func (in *FarmInput) normalize() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if err := required(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return err
	}
	if in.Status != "" {
		return validStatus(in.Status, models.StatusActive, models.StatusInactive)
	}
	return nil
}

// GetFarm loads a farm visible to the principal.
func (s *Service) GetFarm(ctx context.Context, p access.Principal, id uint) (*models.Farm, error) {
	if err := p.Require(access.Perm(access.Read, access.Farm)); err != nil {
		return nil, err
	}
	if !p.CanAccessFarm(id) {
		return nil, store.ErrNotFound
	}
	return s.farms.Get(ctx, id)
}

// CreateFarm adds a farm. Codes are unique, including deleted farms.
func (s *Service) CreateFarm(ctx context.Context, p access.Principal, in FarmInput) (*models.Farm, error) {
	if err := p.Require(access.Perm(access.Create, access.Farm)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	taken, err := s.codeTaken(ctx, &models.Farm{}, in.Code, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: farm code %s is taken", ErrConflict, in.Code)
	}

	f := &models.Farm{Code: in.Code, Name: in.Name, Address: in.Address, Contact: in.Contact, Phone: in.Phone, Status: in.Status}
	if f.Status == "" {
		f.Status = models.StatusActive
	}
	f.Stamp(p.UserID)
	if err := s.farms.Create(ctx, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "farms")
	s.logger.Info("farm created", zap.Uint("farm_id", f.ID), zap.String("code", f.Code), zap.Uint("user_id", p.UserID))
	return f, nil
}

// UpdateFarm changes a farm. A farm with open batches cannot be deactivated.
func (s *Service) UpdateFarm(ctx context.Context, p access.Principal, id uint, in FarmInput) (*models.Farm, error) {
	if err := p.Require(access.Perm(access.Update, access.Farm)); err != nil {
		return nil, err
	}
	if err := p.RequireFarm(id); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f, err := s.farms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.codeTaken(ctx, &models.Farm{}, in.Code, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: farm code %s is taken", ErrConflict, in.Code)
	}
	if in.Status == models.StatusInactive && f.Status != models.StatusInactive {
		if err := s.noOpenBatches(ctx, "farm_id = ?", id); err != nil {
			return nil, err
		}
	}

	f.Code, f.Name, f.Address, f.Contact, f.Phone = in.Code, in.Name, in.Address, in.Contact, in.Phone
	if in.Status != "" {
		f.Status = in.Status
	}
	f.Stamp(p.UserID)
	if err := s.farms.Save(ctx, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "farms")
	return f, nil
}

// DeleteFarm soft-deletes a farm and its coops.
func (s *Service) DeleteFarm(ctx context.Context, p access.Principal, id uint) error {
	if err := p.Require(access.Perm(access.Delete, access.Farm)); err != nil {
		return err
	}
	if err := p.RequireFarm(id); err != nil {
		return err
	}
	if err := s.noOpenBatches(ctx, "farm_id = ?", id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.farms.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		if err := tx.Where("farm_id = ?", id).Delete(&models.Coop{}).Error; err != nil {
			return fmt.Errorf("delete coops of farm %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, "farms", "coops")
	s.logger.Info("farm deleted", zap.Uint("farm_id", id), zap.Uint("user_id", p.UserID))
	return nil
}

// AssignOperators replaces the users assigned to a farm.
func (s *Service) AssignOperators(ctx context.Context, p access.Principal, farmID uint, userIDs []uint) error {
	if err := p.Require(access.Perm(access.Update, access.Farm)); err != nil {
		return err
	}
	if err := p.RequireFarm(farmID); err != nil {
		return err
	}
	if _, err := s.farms.Get(ctx, farmID); err != nil {
		return err
	}
	ids := slices.Compact(slices.Sorted(slices.Values(userIDs)))
	if len(ids) > 0 {
		n, err := s.users.Count(ctx, "id IN ?", ids)
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return fmt.Errorf("%w: unknown user in %v", ErrInvalidInput, ids)
		}
	}
	if err := s.users.AssignOperators(ctx, farmID, ids); err != nil {
		return err
	}
	s.invalidate(ctx, "users")
	return nil
}

func (s *Service) noOpenBatches(ctx context.Context, query string, args ...any) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Livestock{}).
		Where("status = ?", models.StatusActive).
		Where(query, args...).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("count open batches: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d open batches", ErrConflict, n)
	}
	return nil
}

func (in *CoopInput) normalize() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if err := required(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return err
	}
	if in.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	if in.Status != "" {
		return validStatus(in.Status, models.StatusActive, models.StatusInactive)
	}
	return nil
}

// GetCoop loads a coop of a farm visible to the principal.
func (s *Service) GetCoop(ctx context.Context, p access.Principal, id uint) (*models.Coop, error) {
	if err := p.Require(access.Perm(access.Read, access.Coop)); err != nil {
		return nil, err
	}
	c, err := s.coops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccessFarm(c.FarmID) {
		return nil, store.ErrNotFound
	}
	return c, nil
}

// CreateCoop adds a coop to a farm. Codes are unique per farm.
func (s *Service) CreateCoop(ctx context.Context, p access.Principal, in CoopInput) (*models.Coop, error) {
	if err := p.Require(access.Perm(access.Create, access.Coop)); err != nil {
		return nil, err
	}
	if err := p.RequireFarm(in.FarmID); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.farms.Get(ctx, in.FarmID); err != nil {
		return nil, fmt.Errorf("farm %d: %w", in.FarmID, err)
	}
	taken, err := s.codeTaken(ctx, &models.Coop{}, in.Code, 0, "farm_id = ? AND deleted_at IS NULL", in.FarmID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: coop code %s is taken", ErrConflict, in.Code)
	}

	c := &models.Coop{FarmID: in.FarmID, Code: in.Code, Name: in.Name, Capacity: in.Capacity, Status: in.Status}
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	c.Stamp(p.UserID)
	if err := s.coops.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "coops", "farms")
	return c, nil
}

// UpdateCoop changes a coop. The farm of a coop is fixed and a coop holding
// a batch keeps its in_use status.
func (s *Service) UpdateCoop(ctx context.Context, p access.Principal, id uint, in CoopInput) (*models.Coop, error) {
	if err := p.Require(access.Perm(access.Update, access.Coop)); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	c, err := s.coops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.RequireFarm(c.FarmID); err != nil {
		return nil, err
	}
	if in.FarmID != 0 && in.FarmID != c.FarmID {
		return nil, fmt.Errorf("%w: a coop cannot move to another farm", ErrInvalidInput)
	}
	taken, err := s.codeTaken(ctx, &models.Coop{}, in.Code, id, "farm_id = ? AND deleted_at IS NULL", c.FarmID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: coop code %s is taken", ErrConflict, in.Code)
	}
	if c.Status == models.StatusInUse && in.Status != "" {
		return nil, fmt.Errorf("%w: coop %s holds a batch", ErrConflict, c.Code)
	}

	c.Code, c.Name, c.Capacity = in.Code, in.Name, in.Capacity
	if in.Status != "" {
		c.Status = in.Status
	}
	c.Stamp(p.UserID)
	if err := s.coops.Save(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "coops")
	return c, nil
}

// DeleteCoop soft-deletes an empty coop.
func (s *Service) DeleteCoop(ctx context.Context, p access.Principal, id uint) error {
	if err := p.Require(access.Perm(access.Delete, access.Coop)); err != nil {
		return err
	}
	c, err := s.coops.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := p.RequireFarm(c.FarmID); err != nil {
		return err
	}
	if err := s.noOpenBatches(ctx, "coop_id = ?", id); err != nil {
		return err
	}
	if err := s.coops.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, "coops", "farms")
	return nil
}
