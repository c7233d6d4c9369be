package bookkeeping

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const epsilon = 1e-9

// allocateFIFO splits qty over lots, oldest first, and returns what is taken
// from each lot.
func allocateFIFO(available []float64, qty float64) ([]float64, error) {
	takes := make([]float64, len(available))
	remaining := qty
	for i, a := range available {
		if remaining <= epsilon {
			break
		}
		if a <= epsilon {
			continue
		}
		take := min(a, remaining)
		takes[i] = take
		remaining -= take
	}
	if remaining > epsilon {
		var total float64
		for _, a := range available {
			total += max(a, 0)
		}
		return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientStock, qty, total)
	}
	return takes, nil
}

// consumeColumn is the lot counter a movement increases.
type consumeColumn string

const (
	consumeUsed    consumeColumn = "quantity_used"
	consumeMutated consumeColumn = "quantity_mutated"
)

const availableExpr = "quantity_in - quantity_used - quantity_mutated"

// consumeFeed takes qty of a feed from the farm's lots dated on or before day.
func consumeFeed(tx *gorm.DB, farmID, feedID uint, day time.Time, qty float64, col consumeColumn, userID uint) error {
	var lots []models.FeedStock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND feed_id = ? AND date <= ? AND "+availableExpr+" > ?", farmID, feedID, day, epsilon).
		Order("date ASC, id ASC").
		Find(&lots).Error
	if err != nil {
		return fmt.Errorf("load feed lots: %w", err)
	}
	available := make([]float64, len(lots))
	for i, l := range lots {
		available[i] = l.Available()
	}
	takes, err := allocateFIFO(available, qty)
	if err != nil {
		return fmt.Errorf("feed %d at farm %d: %w", feedID, farmID, err)
	}
	for i, take := range takes {
		if take == 0 {
			continue
		}
		if err := bump(tx.Model(&models.FeedStock{}), lots[i].ID, col, take, userID); err != nil {
			return err
		}
	}
	return nil
}

// consumeSupply takes qty of a supply from the farm's lots dated on or before day.
func consumeSupply(tx *gorm.DB, farmID, supplyID uint, day time.Time, qty float64, col consumeColumn, userID uint) error {
	var lots []models.SupplyStock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND supply_id = ? AND date <= ? AND "+availableExpr+" > ?", farmID, supplyID, day, epsilon).
		Order("date ASC, id ASC").
		Find(&lots).Error
	if err != nil {
		return fmt.Errorf("load supply lots: %w", err)
	}
	available := make([]float64, len(lots))
	for i, l := range lots {
		available[i] = l.Available()
	}
	takes, err := allocateFIFO(available, qty)
	if err != nil {
		return fmt.Errorf("supply %d at farm %d: %w", supplyID, farmID, err)
	}
	for i, take := range takes {
		if take == 0 {
			continue
		}
		if err := bump(tx.Model(&models.SupplyStock{}), lots[i].ID, col, take, userID); err != nil {
			return err
		}
	}
	return nil
}

func bump(q *gorm.DB, lotID uint, col consumeColumn, by float64, userID uint) error {
	updates := map[string]any{string(col): gorm.Expr(string(col)+" + ?", by)}
	if userID != 0 {
		updates["updated_by"] = userID
	}
	if err := q.Where("id = ?", lotID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update lot %d: %w", lotID, err)
	}
	return nil
}
