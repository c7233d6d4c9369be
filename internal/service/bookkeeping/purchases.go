package bookkeeping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/growth"
)

// FeedPurchaseInput buys feed into a farm.
type FeedPurchaseInput struct {
	Invoice      string          `json:"invoice"`
	Date         models.Date     `json:"date"`
	FarmID       uint            `json:"farm_id" binding:"required"`
	FeedID       uint            `json:"feed_id" binding:"required"`
	Supplier     string          `json:"supplier"`
	Quantity     float64         `json:"quantity" binding:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// SupplyPurchaseInput buys supplies into a farm.
type SupplyPurchaseInput struct {
	Invoice      string          `json:"invoice"`
	Date         models.Date     `json:"date"`
	FarmID       uint            `json:"farm_id" binding:"required"`
	SupplyID     uint            `json:"supply_id" binding:"required"`
	Supplier     string          `json:"supplier"`
	Quantity     float64         `json:"quantity" binding:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// LivestockPurchaseInput places a new batch of DOC into a coop.
type LivestockPurchaseInput struct {
	Invoice       string          `json:"invoice"`
	Date          models.Date     `json:"date"`
	FarmID        uint            `json:"farm_id" binding:"required"`
	CoopID        uint            `json:"coop_id" binding:"required"`
	Supplier      string          `json:"supplier"`
	Name          string          `json:"name"`
	Strain        string          `json:"strain"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	InitialWeight float64         `json:"initial_weight"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

func lineTotal(price decimal.Decimal, qty float64) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, invalid("price must not be negative")
	}
	return price.Mul(decimal.NewFromFloat(qty)).Round(2), nil
}

// PurchaseFeed records a feed purchase and opens a stock lot for it.
func (s *Service) PurchaseFeed(ctx context.Context, p access.Principal, in FeedPurchaseInput) (*models.FeedPurchase, error) {
	if err := authorize(p, access.Perm(access.Create, access.Purchase), in.FarmID); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	total, err := lineTotal(in.PricePerUnit, in.Quantity)
	if err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	purchase := &models.FeedPurchase{
		Invoice:      in.Invoice,
		Date:         day.Time,
		FarmID:       in.FarmID,
		FeedID:       in.FeedID,
		Supplier:     in.Supplier,
		Quantity:     in.Quantity,
		PricePerUnit: in.PricePerUnit,
		Total:        total,
	}
	purchase.Stamp(p.UserID)

	err = s.run(ctx, "purchase_feed", func(tx *gorm.DB) error {
		if _, err := loadFarm(tx, in.FarmID); err != nil {
			return err
		}
		if _, err := first[models.Feed](tx, "feed", in.FeedID, false); err != nil {
			return err
		}
		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("create feed purchase: %w", err)
		}
		lot := &models.FeedStock{
			FarmID:     in.FarmID,
			FeedID:     in.FeedID,
			SourceType: models.SourcePurchase,
			SourceID:   purchase.ID,
			Date:       day.Time,
			QuantityIn: in.Quantity,
		}
		lot.Stamp(p.UserID)
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("create feed lot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// PurchaseSupply records a supply purchase and opens a stock lot for it.
func (s *Service) PurchaseSupply(ctx context.Context, p access.Principal, in SupplyPurchaseInput) (*models.SupplyPurchase, error) {
	if err := authorize(p, access.Perm(access.Create, access.Purchase), in.FarmID); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	total, err := lineTotal(in.PricePerUnit, in.Quantity)
	if err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	purchase := &models.SupplyPurchase{
		Invoice:      in.Invoice,
		Date:         day.Time,
		FarmID:       in.FarmID,
		SupplyID:     in.SupplyID,
		Supplier:     in.Supplier,
		Quantity:     in.Quantity,
		PricePerUnit: in.PricePerUnit,
		Total:        total,
	}
	purchase.Stamp(p.UserID)

	err = s.run(ctx, "purchase_supply", func(tx *gorm.DB) error {
		if _, err := loadFarm(tx, in.FarmID); err != nil {
			return err
		}
		if _, err := first[models.Supply](tx, "supply", in.SupplyID, false); err != nil {
			return err
		}
		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("create supply purchase: %w", err)
		}
		lot := &models.SupplyStock{
			FarmID:     in.FarmID,
			SupplyID:   in.SupplyID,
			SourceType: models.SourcePurchase,
			SourceID:   purchase.ID,
			Date:       day.Time,
			QuantityIn: in.Quantity,
		}
		lot.Stamp(p.UserID)
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("create supply lot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// PurchaseLivestock opens a batch in an available coop and records its purchase.
func (s *Service) PurchaseLivestock(ctx context.Context, p access.Principal, in LivestockPurchaseInput) (*models.Livestock, error) {
	if err := authorize(p, access.Perm(access.Create, access.Purchase), in.FarmID); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if in.InitialWeight < 0 {
		return nil, invalid("initial weight must not be negative")
	}
	total, err := lineTotal(in.PricePerUnit, float64(in.Quantity))
	if err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	var batch *models.Livestock
	err = s.run(ctx, "purchase_livestock", func(tx *gorm.DB) error {
		if _, err := loadFarm(tx, in.FarmID); err != nil {
			return err
		}
		coop, err := first[models.Coop](tx, "coop", in.CoopID, true)
		if err != nil {
			return err
		}
		switch {
		case coop.FarmID != in.FarmID:
			return fmt.Errorf("%w: coop %s belongs to another farm", ErrCoopUnavailable, coop.Code)
		case coop.Status != models.StatusActive:
			return fmt.Errorf("%w: coop %s is %s", ErrCoopUnavailable, coop.Code, coop.Status)
		case coop.Capacity > 0 && in.Quantity > coop.Capacity:
			return fmt.Errorf("%w: coop %s holds %d birds, got %d", ErrCoopUnavailable, coop.Code, coop.Capacity, in.Quantity)
		}

		name := in.Name
		if name == "" {
			name = fmt.Sprintf("%s-%s", coop.Code, day.Format("20060102"))
		}
		weight := in.InitialWeight
		if weight == 0 {
			weight = growth.DefaultDOCWeight
		}
		batch = &models.Livestock{
			FarmID:          in.FarmID,
			CoopID:          in.CoopID,
			Name:            name,
			Strain:          in.Strain,
			StartDate:       day.Time,
			InitialQuantity: in.Quantity,
			InitialWeight:   weight,
			PricePerUnit:    in.PricePerUnit,
			Status:          models.StatusActive,
		}
		batch.Stamp(p.UserID)
		if err := tx.Create(batch).Error; err != nil {
			return fmt.Errorf("create livestock: %w", err)
		}

		purchase := &models.LivestockPurchase{
			Invoice:      in.Invoice,
			Date:         day.Time,
			FarmID:       in.FarmID,
			CoopID:       in.CoopID,
			LivestockID:  batch.ID,
			Supplier:     in.Supplier,
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			Total:        total,
		}
		purchase.Stamp(p.UserID)
		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("create livestock purchase: %w", err)
		}

		if err := tx.Model(coop).Update("status", models.StatusInUse).Error; err != nil {
			return fmt.Errorf("mark coop %s in use: %w", coop.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
