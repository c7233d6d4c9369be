package bookkeeping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// DepletionInput records dead or culled birds.
type DepletionInput struct {
	LivestockID uint        `json:"livestock_id" binding:"required"`
	Date        models.Date `json:"date"`
	Type        string      `json:"type" binding:"required,oneof=mortality culling"`
	Quantity    int         `json:"quantity" binding:"required,gt=0"`
	Reason      string      `json:"reason"`
}

// SaleInput records birds sold out of a batch.
type SaleInput struct {
	LivestockID uint            `json:"livestock_id" binding:"required"`
	Date        models.Date     `json:"date"`
	Buyer       string          `json:"buyer"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	TotalWeight float64         `json:"total_weight" binding:"required,gt=0"`
	PricePerKg  decimal.Decimal `json:"price_per_kg"`
}

func depletionCounter(kind string) (string, error) {
	switch kind {
	case models.DepletionMortality:
		return "depleted", nil
	case models.DepletionCulling:
		return "culled", nil
	}
	return "", invalid("unknown depletion type %q", kind)
}

func checkPopulation(l *models.Livestock, qty int) error {
	if pop := l.Population(); qty > pop {
		return fmt.Errorf("%w: %s has %d birds, got %d", ErrInsufficientPopulation, l.Name, pop, qty)
	}
	return nil
}

// Deplete records mortality or culling against a batch.
func (s *Service) Deplete(ctx context.Context, p access.Principal, in DepletionInput) (*models.LivestockDepletion, error) {
	perm := access.Perm(access.Create, access.Depletion)
	if err := p.Require(perm); err != nil {
		return nil, err
	}
	counter, err := depletionCounter(in.Type)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	day := s.day(in.Date)

	depletion := &models.LivestockDepletion{
		LivestockID: in.LivestockID,
		Date:        day.Time,
		Type:        in.Type,
		Quantity:    in.Quantity,
		Reason:      in.Reason,
	}
	depletion.Stamp(p.UserID)

	err = s.run(ctx, "deplete", func(tx *gorm.DB) error {
		batch, err := loadBatch(tx, in.LivestockID)
		if err != nil {
			return err
		}
		if err := authorize(p, perm, batch.FarmID); err != nil {
			return err
		}
		if err := checkDay(batch, day); err != nil {
			return err
		}
		if err := checkNotRecorded(tx, batch, day); err != nil {
			return err
		}
		if err := checkPopulation(batch, in.Quantity); err != nil {
			return err
		}
		if err := tx.Create(depletion).Error; err != nil {
			return fmt.Errorf("create depletion: %w", err)
		}
		return addCounters(tx, batch.ID, p.UserID, map[string]int{counter: in.Quantity})
	})
	if err != nil {
		return nil, err
	}
	return depletion, nil
}

// Sell records a sale. The total is the price per kg times the weight sold.
func (s *Service) Sell(ctx context.Context, p access.Principal, in SaleInput) (*models.LivestockSale, error) {
	perm := access.Perm(access.Create, access.Sale)
	if err := p.Require(perm); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if in.TotalWeight <= 0 {
		return nil, invalid("total weight must be positive")
	}
	total, err := lineTotal(in.PricePerKg, in.TotalWeight)
	if err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	sale := &models.LivestockSale{
		LivestockID: in.LivestockID,
		Date:        day.Time,
		Buyer:       in.Buyer,
		Quantity:    in.Quantity,
		TotalWeight: in.TotalWeight,
		PricePerKg:  in.PricePerKg,
		Total:       total,
	}
	sale.Stamp(p.UserID)

	err = s.run(ctx, "sell", func(tx *gorm.DB) error {
		batch, err := loadBatch(tx, in.LivestockID)
		if err != nil {
			return err
		}
		if err := authorize(p, perm, batch.FarmID); err != nil {
			return err
		}
		if err := checkDay(batch, day); err != nil {
			return err
		}
		if err := checkNotRecorded(tx, batch, day); err != nil {
			return err
		}
		if err := checkPopulation(batch, in.Quantity); err != nil {
			return err
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		return addCounters(tx, batch.ID, p.UserID, map[string]int{"sold": in.Quantity})
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CloseBatch ends a batch and frees its coop.
func (s *Service) CloseBatch(ctx context.Context, p access.Principal, livestockID uint) (*models.Livestock, error) {
	perm := access.Perm(access.Update, access.Livestock)
	if err := p.Require(perm); err != nil {
		return nil, err
	}

	var batch *models.Livestock
	err := s.run(ctx, "close_batch", func(tx *gorm.DB) error {
		var err error
		batch, err = loadBatch(tx, livestockID)
		if err != nil {
			return err
		}
		if err := authorize(p, perm, batch.FarmID); err != nil {
			return err
		}
		updates := map[string]any{"status": models.StatusClosed}
		if p.UserID != 0 {
			updates["updated_by"] = p.UserID
		}
		if err := tx.Model(&models.Livestock{}).Where("id = ?", batch.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("close livestock %d: %w", batch.ID, err)
		}
		batch.Status = models.StatusClosed
		err = tx.Model(&models.Coop{}).
			Where("id = ? AND status = ?", batch.CoopID, models.StatusInUse).
			Update("status", models.StatusActive).Error
		if err != nil {
			return fmt.Errorf("free coop %d: %w", batch.CoopID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
