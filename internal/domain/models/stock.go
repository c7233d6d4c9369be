package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FeedPhaseStarter  = "starter"
	FeedPhaseGrower   = "grower"
	FeedPhaseFinisher = "finisher"

	SourcePurchase = "purchase"
	SourceMutation = "mutation"
)

// Feed is master data for a feed product.
type Feed struct {
	Model
	Code        string `gorm:"size:32;uniqueIndex;not null" json:"code" binding:"required"`
	Name        string `gorm:"size:128;not null" json:"name" binding:"required"`
	Unit        string `gorm:"size:16;not null;default:kg" json:"unit"`
	Phase       string `gorm:"size:16" json:"phase"`
	Description string `gorm:"size:255" json:"description"`
}

// Supply is master data for medicine, vitamins, vaccines and consumables.
type Supply struct {
	Model
	Code     string `gorm:"size:32;uniqueIndex;not null" json:"code" binding:"required"`
	Name     string `gorm:"size:128;not null" json:"name" binding:"required"`
	Unit     string `gorm:"size:16;not null;default:pcs" json:"unit"`
	Category string `gorm:"size:32" json:"category"`
}

// TableName pins the table name.
func (Supply) TableName() string { return "supplies" }

// FeedPurchase records feed bought into a farm.
type FeedPurchase struct {
	Model
	Invoice      string          `gorm:"size:64;index" json:"invoice"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	FarmID       uint            `gorm:"index;not null" json:"farm_id"`
	FeedID       uint            `gorm:"index;not null" json:"feed_id"`
	Supplier     string          `gorm:"size:128" json:"supplier"`
	Quantity     float64         `gorm:"not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`
	Total        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
}

// SupplyPurchase records supplies bought into a farm.
type SupplyPurchase struct {
	Model
	Invoice      string          `gorm:"size:64;index" json:"invoice"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	FarmID       uint            `gorm:"index;not null" json:"farm_id"`
	SupplyID     uint            `gorm:"index;not null" json:"supply_id"`
	Supplier     string          `gorm:"size:128" json:"supplier"`
	Quantity     float64         `gorm:"not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`
	Total        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
}

// FeedStock is a lot of feed held by a farm. Lots are consumed oldest first.
type FeedStock struct {
	Model
	FarmID          uint      `gorm:"index;not null" json:"farm_id"`
	FeedID          uint      `gorm:"index;not null" json:"feed_id"`
	SourceType      string    `gorm:"size:16;not null" json:"source_type"`
	SourceID        uint      `gorm:"not null" json:"source_id"`
	Date            time.Time `gorm:"index;not null" json:"date"`
	QuantityIn      float64   `gorm:"not null" json:"quantity_in"`
	QuantityUsed    float64   `gorm:"not null;default:0" json:"quantity_used"`
	QuantityMutated float64   `gorm:"not null;default:0" json:"quantity_mutated"`
}

// Available returns what is left in the lot.
func (s FeedStock) Available() float64 {
	return s.QuantityIn - s.QuantityUsed - s.QuantityMutated
}

// SupplyStock is a lot of supplies held by a farm.
type SupplyStock struct {
	Model
	FarmID          uint      `gorm:"index;not null" json:"farm_id"`
	SupplyID        uint      `gorm:"index;not null" json:"supply_id"`
	SourceType      string    `gorm:"size:16;not null" json:"source_type"`
	SourceID        uint      `gorm:"not null" json:"source_id"`
	Date            time.Time `gorm:"index;not null" json:"date"`
	QuantityIn      float64   `gorm:"not null" json:"quantity_in"`
	QuantityUsed    float64   `gorm:"not null;default:0" json:"quantity_used"`
	QuantityMutated float64   `gorm:"not null;default:0" json:"quantity_mutated"`
}

// Available returns what is left in the lot.
func (s SupplyStock) Available() float64 {
	return s.QuantityIn - s.QuantityUsed - s.QuantityMutated
}

// FeedMutation transfers feed between farms.
type FeedMutation struct {
	Model
	Date              time.Time `gorm:"index;not null" json:"date"`
	FeedID            uint      `gorm:"index;not null" json:"feed_id"`
	SourceFarmID      uint      `gorm:"index;not null" json:"source_farm_id"`
	DestinationFarmID uint      `gorm:"index;not null" json:"destination_farm_id"`
	Quantity          float64   `gorm:"not null" json:"quantity"`
	Notes             string    `gorm:"size:255" json:"notes"`
}

// SupplyMutation transfers supplies between farms.
type SupplyMutation struct {
	Model
	Date              time.Time `gorm:"index;not null" json:"date"`
	SupplyID          uint      `gorm:"index;not null" json:"supply_id"`
	SourceFarmID      uint      `gorm:"index;not null" json:"source_farm_id"`
	DestinationFarmID uint      `gorm:"index;not null" json:"destination_farm_id"`
	Quantity          float64   `gorm:"not null" json:"quantity"`
	Notes             string    `gorm:"size:255" json:"notes"`
}

// FeedUsage is feed taken from stock and given to a batch.
type FeedUsage struct {
	Model
	LivestockID uint      `gorm:"index;not null" json:"livestock_id"`
	FeedID      uint      `gorm:"index;not null" json:"feed_id"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	RecordingID *uint     `gorm:"index" json:"recording_id,omitempty"`
}
