package bookkeeping

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/growth"
)

// FeedUsageInput gives feed from the farm's stock to a batch.
type FeedUsageInput struct {
	LivestockID uint        `json:"livestock_id" binding:"required"`
	FeedID      uint        `json:"feed_id" binding:"required"`
	Date        models.Date `json:"date"`
	Quantity    float64     `json:"quantity" binding:"required,gt=0"`
}

// FeedLine is one feed given during a recorded day.
type FeedLine struct {
	FeedID   uint    `json:"feed_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
}

// RecordingInput is the daily book entry of a batch. A zero AvgWeight means
// the birds were not weighed and the previous weight carries over.
type RecordingInput struct {
	LivestockID uint        `json:"livestock_id" binding:"required"`
	Date        models.Date `json:"date"`
	Mortality   int         `json:"mortality" binding:"gte=0"`
	Culling     int         `json:"culling" binding:"gte=0"`
	AvgWeight   float64     `json:"avg_weight" binding:"gte=0"`
	Feeds       []FeedLine  `json:"feeds" binding:"dive"`
	Notes       string      `json:"notes"`
}

// UseFeed records feed given to a batch outside of a daily recording. The
// next recording picks the usage up, so the day must not be recorded yet.
func (s *Service) UseFeed(ctx context.Context, p access.Principal, in FeedUsageInput) (*models.FeedUsage, error) {
	perm := access.Perm(access.Create, access.Recording)
	if err := p.Require(perm); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	day := s.day(in.Date)

	usage := &models.FeedUsage{
		LivestockID: in.LivestockID,
		FeedID:      in.FeedID,
		Date:        day.Time,
		Quantity:    in.Quantity,
	}
	usage.Stamp(p.UserID)

	err := s.run(ctx, "use_feed", func(tx *gorm.DB) error {
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
		if err := consumeFeed(tx, batch.FarmID, in.FeedID, day.Time, in.Quantity, consumeUsed, p.UserID); err != nil {
			return err
		}
		if err := tx.Create(usage).Error; err != nil {
			return fmt.Errorf("create feed usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// RecordDaily books one day of a batch: deaths, culls, weighing and feed.
// Days must be recorded in order, once each. Depletions already booked for
// the day count toward its mortality and culling, and unrecorded feed usages
// up to the day count toward its feed.
func (s *Service) RecordDaily(ctx context.Context, p access.Principal, in RecordingInput) (*models.Recording, error) {
	perm := access.Perm(access.Create, access.Recording)
	if err := p.Require(perm); err != nil {
		return nil, err
	}
	if in.Mortality < 0 || in.Culling < 0 {
		return nil, invalid("mortality and culling must not be negative")
	}
	if in.AvgWeight < 0 {
		return nil, invalid("average weight must not be negative")
	}
	for _, f := range in.Feeds {
		if f.Quantity <= 0 {
			return nil, invalid("feed %d: quantity must be positive", f.FeedID)
		}
	}
	day := s.day(in.Date)

	var rec *models.Recording
	err := s.run(ctx, "record_daily", func(tx *gorm.DB) error {
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

		var later int64
		err = tx.Model(&models.Recording{}).
			Where("livestock_id = ? AND date >= ?", batch.ID, day.Time).
			Count(&later).Error
		if err != nil {
			return fmt.Errorf("check recordings: %w", err)
		}
		if later > 0 {
			var same int64
			if err := tx.Model(&models.Recording{}).Where("livestock_id = ? AND date = ?", batch.ID, day.Time).Count(&same).Error; err != nil {
				return fmt.Errorf("check recordings: %w", err)
			}
			if same > 0 {
				return fmt.Errorf("%w: %s on %s", ErrDuplicateRecording, batch.Name, day.Format("2006-01-02"))
			}
			return invalid("%s already has recordings after %s", batch.Name, day.Format("2006-01-02"))
		}

		if pop := batch.Population(); in.Mortality+in.Culling > pop {
			return fmt.Errorf("%w: %s has %d birds, losing %d", ErrInsufficientPopulation, batch.Name, pop, in.Mortality+in.Culling)
		}

		var booked []models.LivestockDepletion
		err = tx.Where("livestock_id = ? AND date = ? AND recording_id IS NULL", batch.ID, day.Time).Find(&booked).Error
		if err != nil {
			return fmt.Errorf("load depletions: %w", err)
		}
		mortality, culling := in.Mortality, in.Culling
		for _, d := range booked {
			if d.Type == models.DepletionCulling {
				culling += d.Quantity
			} else {
				mortality += d.Quantity
			}
		}
		stockEnd := batch.Population() - in.Mortality - in.Culling
		stockStart := stockEnd + mortality + culling

		prevWeight := batch.InitialWeight
		var prevFeed, prevGain float64
		var prev models.Recording
		err = tx.Where("livestock_id = ? AND date < ?", batch.ID, day.Time).Order("date DESC").Take(&prev).Error
		switch {
		case err == nil:
			prevWeight, prevFeed, prevGain = prev.AvgWeight, prev.CumulativeFeed, prev.CumulativeGain
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load previous recording: %w", err)
		}

		weight := in.AvgWeight
		if weight == 0 {
			weight = prevWeight
		}
		gain := weight - prevWeight

		var pending []models.FeedUsage
		err = tx.Where("livestock_id = ? AND date <= ? AND recording_id IS NULL", batch.ID, day.Time).Find(&pending).Error
		if err != nil {
			return fmt.Errorf("load feed usages: %w", err)
		}
		var feedKg float64
		for _, u := range pending {
			feedKg += u.Quantity
		}
		for _, f := range in.Feeds {
			feedKg += f.Quantity
		}
		cumFeed := prevFeed + feedKg
		cumGain := prevGain + float64(stockEnd)*gain

		rec = &models.Recording{
			LivestockID:    batch.ID,
			Date:           day.Time,
			Age:            batch.AgeOn(day.Time),
			StockStart:     stockStart,
			StockEnd:       stockEnd,
			Mortality:      mortality,
			Culling:        culling,
			AvgWeight:      weight,
			WeightGain:     gain,
			FeedKg:         feedKg,
			CumulativeFeed: cumFeed,
			CumulativeGain: cumGain,
			FCR:            growth.FCR(cumFeed, cumGain),
			Notes:          in.Notes,
		}
		rec.Stamp(p.UserID)
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("create recording: %w", err)
		}

		counters := map[string]int{}
		losses := []struct {
			kind string
			qty  int
		}{{models.DepletionMortality, in.Mortality}, {models.DepletionCulling, in.Culling}}
		for _, loss := range losses {
			kind, qty := loss.kind, loss.qty
			if qty == 0 {
				continue
			}
			d := &models.LivestockDepletion{
				LivestockID: batch.ID,
				Date:        day.Time,
				Type:        kind,
				Quantity:    qty,
				RecordingID: &rec.ID,
			}
			d.Stamp(p.UserID)
			if err := tx.Create(d).Error; err != nil {
				return fmt.Errorf("create %s: %w", kind, err)
			}
			counter, _ := depletionCounter(kind)
			counters[counter] = qty
		}
		if len(counters) > 0 {
			if err := addCounters(tx, batch.ID, p.UserID, counters); err != nil {
				return err
			}
		}

		for _, f := range in.Feeds {
			if err := consumeFeed(tx, batch.FarmID, f.FeedID, day.Time, f.Quantity, consumeUsed, p.UserID); err != nil {
				return err
			}
			u := &models.FeedUsage{
				LivestockID: batch.ID,
				FeedID:      f.FeedID,
				Date:        day.Time,
				Quantity:    f.Quantity,
				RecordingID: &rec.ID,
			}
			u.Stamp(p.UserID)
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create feed usage: %w", err)
			}
		}
		if len(pending) > 0 {
			ids := make([]uint, len(pending))
			for i, u := range pending {
				ids[i] = u.ID
			}
			if err := tx.Model(&models.FeedUsage{}).Where("id IN ?", ids).Update("recording_id", rec.ID).Error; err != nil {
				return fmt.Errorf("link feed usages: %w", err)
			}
		}
		if len(booked) > 0 {
			ids := make([]uint, len(booked))
			for i, d := range booked {
				ids[i] = d.ID
			}
			if err := tx.Model(&models.LivestockDepletion{}).Where("id IN ?", ids).Update("recording_id", rec.ID).Error; err != nil {
				return fmt.Errorf("link depletions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
