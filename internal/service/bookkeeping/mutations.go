package bookkeeping

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// StockMutationInput moves feed or supplies from one farm to another.
type StockMutationInput struct {
	Date              models.Date `json:"date"`
	ItemID            uint        `json:"item_id" binding:"required"`
	SourceFarmID      uint        `json:"source_farm_id" binding:"required"`
	DestinationFarmID uint        `json:"destination_farm_id" binding:"required"`
	Quantity          float64     `json:"quantity" binding:"required,gt=0"`
	Notes             string      `json:"notes"`
}

// LivestockMutationInput moves birds between two open batches.
type LivestockMutationInput struct {
	Date                   models.Date `json:"date"`
	SourceLivestockID      uint        `json:"source_livestock_id" binding:"required"`
	DestinationLivestockID uint        `json:"destination_livestock_id" binding:"required"`
	Quantity               int         `json:"quantity" binding:"required,gt=0"`
	Reason                 string      `json:"reason"`
}

func (in StockMutationInput) validate() error {
	if in.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	if in.SourceFarmID == in.DestinationFarmID {
		return invalid("source and destination farm must differ")
	}
	return nil
}

// MutateFeed transfers feed, consuming the oldest source lots first and
// opening a lot at the destination.
func (s *Service) MutateFeed(ctx context.Context, p access.Principal, in StockMutationInput) (*models.FeedMutation, error) {
	if err := authorize(p, access.Perm(access.Create, access.Mutation), in.SourceFarmID, in.DestinationFarmID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	mutation := &models.FeedMutation{
		Date:              day.Time,
		FeedID:            in.ItemID,
		SourceFarmID:      in.SourceFarmID,
		DestinationFarmID: in.DestinationFarmID,
		Quantity:          in.Quantity,
		Notes:             in.Notes,
	}
	mutation.Stamp(p.UserID)

	err := s.run(ctx, "mutate_feed", func(tx *gorm.DB) error {
		if _, err := loadFarm(tx, in.DestinationFarmID); err != nil {
			return err
		}
		if _, err := first[models.Feed](tx, "feed", in.ItemID, false); err != nil {
			return err
		}
		if err := consumeFeed(tx, in.SourceFarmID, in.ItemID, day.Time, in.Quantity, consumeMutated, p.UserID); err != nil {
			return err
		}
		if err := tx.Create(mutation).Error; err != nil {
			return fmt.Errorf("create feed mutation: %w", err)
		}
		lot := &models.FeedStock{
			FarmID:     in.DestinationFarmID,
			FeedID:     in.ItemID,
			SourceType: models.SourceMutation,
			SourceID:   mutation.ID,
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
	return mutation, nil
}

// MutateSupply transfers supplies between farms.
func (s *Service) MutateSupply(ctx context.Context, p access.Principal, in StockMutationInput) (*models.SupplyMutation, error) {
	if err := authorize(p, access.Perm(access.Create, access.Mutation), in.SourceFarmID, in.DestinationFarmID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	day := s.day(in.Date)

	mutation := &models.SupplyMutation{
		Date:              day.Time,
		SupplyID:          in.ItemID,
		SourceFarmID:      in.SourceFarmID,
		DestinationFarmID: in.DestinationFarmID,
		Quantity:          in.Quantity,
		Notes:             in.Notes,
	}
	mutation.Stamp(p.UserID)

	err := s.run(ctx, "mutate_supply", func(tx *gorm.DB) error {
		if _, err := loadFarm(tx, in.DestinationFarmID); err != nil {
			return err
		}
		if _, err := first[models.Supply](tx, "supply", in.ItemID, false); err != nil {
			return err
		}
		if err := consumeSupply(tx, in.SourceFarmID, in.ItemID, day.Time, in.Quantity, consumeMutated, p.UserID); err != nil {
			return err
		}
		if err := tx.Create(mutation).Error; err != nil {
			return fmt.Errorf("create supply mutation: %w", err)
		}
		lot := &models.SupplyStock{
			FarmID:     in.DestinationFarmID,
			SupplyID:   in.ItemID,
			SourceType: models.SourceMutation,
			SourceID:   mutation.ID,
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
	return mutation, nil
}

// MutateLivestock moves birds from one batch to another.
func (s *Service) MutateLivestock(ctx context.Context, p access.Principal, in LivestockMutationInput) (*models.LivestockMutation, error) {
	if err := p.Require(access.Perm(access.Create, access.Mutation)); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if in.SourceLivestockID == in.DestinationLivestockID {
		return nil, invalid("source and destination batch must differ")
	}
	day := s.day(in.Date)

	mutation := &models.LivestockMutation{
		Date:                   day.Time,
		SourceLivestockID:      in.SourceLivestockID,
		DestinationLivestockID: in.DestinationLivestockID,
		Quantity:               in.Quantity,
		Reason:                 in.Reason,
	}
	mutation.Stamp(p.UserID)

	err := s.run(ctx, "mutate_livestock", func(tx *gorm.DB) error {
		src, err := loadBatch(tx, in.SourceLivestockID)
		if err != nil {
			return err
		}
		dst, err := loadBatch(tx, in.DestinationLivestockID)
		if err != nil {
			return err
		}
		if err := authorize(p, access.Perm(access.Create, access.Mutation), src.FarmID, dst.FarmID); err != nil {
			return err
		}
		if err := checkDay(src, day); err != nil {
			return err
		}
		if err := checkDay(dst, day); err != nil {
			return err
		}
		for _, l := range []*models.Livestock{src, dst} {
			if err := checkNotRecorded(tx, l, day); err != nil {
				return err
			}
		}
		if pop := src.Population(); in.Quantity > pop {
			return fmt.Errorf("%w: %s has %d birds, moving %d", ErrInsufficientPopulation, src.Name, pop, in.Quantity)
		}
		if err := addCounters(tx, src.ID, p.UserID, map[string]int{"mutated_out": in.Quantity}); err != nil {
			return err
		}
		if err := addCounters(tx, dst.ID, p.UserID, map[string]int{"mutated_in": in.Quantity}); err != nil {
			return err
		}
		if err := tx.Create(mutation).Error; err != nil {
			return fmt.Errorf("create livestock mutation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutation, nil
}
