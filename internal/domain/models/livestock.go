package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepletionMortality = "mortality"
	DepletionCulling   = "culling"
)

// Livestock is a batch of birds placed into one coop on one start date.
// Population is derived from the counters so that every depletion, sale and
// mutation leaves a trace in its own table and in the batch totals.
type Livestock struct {
	Model
	FarmID          uint            `gorm:"index;not null" json:"farm_id"`
	CoopID          uint            `gorm:"index;not null" json:"coop_id"`
	Name            string          `gorm:"size:128;not null" json:"name"`
	Strain          string          `gorm:"size:64" json:"strain"`
	StartDate       time.Time       `gorm:"index;not null" json:"start_date"`
	InitialQuantity int             `gorm:"not null" json:"initial_quantity"`
	InitialWeight   float64         `gorm:"not null" json:"initial_weight"`
	PricePerUnit    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`
	Depleted        int             `gorm:"not null;default:0" json:"depleted"`
	Culled          int             `gorm:"not null;default:0" json:"culled"`
	Sold            int             `gorm:"not null;default:0" json:"sold"`
	MutatedIn       int             `gorm:"not null;default:0" json:"mutated_in"`
	MutatedOut      int             `gorm:"not null;default:0" json:"mutated_out"`
	Status          string          `gorm:"size:16;not null;default:active" json:"status"`
}

// TableName pins the table name; the pluraliser is unsure about "livestock".
func (Livestock) TableName() string { return "livestocks" }

// Population returns the number of birds currently in the batch.
func (l Livestock) Population() int {
	return l.InitialQuantity + l.MutatedIn - l.Depleted - l.Culled - l.Sold - l.MutatedOut
}

// AgeOn returns the age in days on the given date. The start date is day 1.
func (l Livestock) AgeOn(date time.Time) int {
	return DaysBetween(l.StartDate, date) + 1
}

// DaysBetween counts whole calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LivestockPurchase records DOC bought into a new batch.
type LivestockPurchase struct {
	Model
	Invoice      string          `gorm:"size:64;index" json:"invoice"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	FarmID       uint            `gorm:"index;not null" json:"farm_id"`
	CoopID       uint            `gorm:"index;not null" json:"coop_id"`
	LivestockID  uint            `gorm:"index;not null" json:"livestock_id"`
	Supplier     string          `gorm:"size:128" json:"supplier"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`
	Total        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
}

// LivestockDepletion is a loss of birds: mortality or culling (afkir).
type LivestockDepletion struct {
	Model
	LivestockID uint      `gorm:"index;not null" json:"livestock_id"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Reason      string    `gorm:"size:255" json:"reason"`
	RecordingID *uint     `gorm:"index" json:"recording_id,omitempty"`
}

// LivestockSale records birds leaving the batch through a sale.
type LivestockSale struct {
	Model
	LivestockID uint            `gorm:"index;not null" json:"livestock_id"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Buyer       string          `gorm:"size:128" json:"buyer"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	TotalWeight float64         `gorm:"not null" json:"total_weight"`
	PricePerKg  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_kg"`
	Total       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
}

// LivestockMutation moves birds from one batch to another.
type LivestockMutation struct {
	Model
	Date                   time.Time `gorm:"index;not null" json:"date"`
	SourceLivestockID      uint      `gorm:"index;not null" json:"source_livestock_id"`
	DestinationLivestockID uint      `gorm:"index;not null" json:"destination_livestock_id"`
	Quantity               int       `gorm:"not null" json:"quantity"`
	Reason                 string    `gorm:"size:255" json:"reason"`
}

// Recording is the daily book entry of a batch.
type Recording struct {
	Model
	LivestockID    uint      `gorm:"uniqueIndex:idx_recording_day;not null" json:"livestock_id"`
	Date           time.Time `gorm:"uniqueIndex:idx_recording_day;not null" json:"date"`
	Age            int       `gorm:"not null" json:"age"`
	StockStart     int       `gorm:"not null" json:"stock_start"`
	StockEnd       int       `gorm:"not null" json:"stock_end"`
	Mortality      int       `gorm:"not null;default:0" json:"mortality"`
	Culling        int       `gorm:"not null;default:0" json:"culling"`
	AvgWeight      float64   `gorm:"not null" json:"avg_weight"`
	WeightGain     float64   `gorm:"not null" json:"weight_gain"`
	FeedKg         float64   `gorm:"not null;default:0" json:"feed_kg"`
	CumulativeFeed float64   `gorm:"not null;default:0" json:"cumulative_feed"`
	CumulativeGain float64   `gorm:"not null;default:0" json:"cumulative_gain"`
	FCR            float64   `gorm:"column:fcr;not null;default:0" json:"fcr"`
	Notes          string    `gorm:"size:255" json:"notes"`
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Farm{},
		&Coop{},
		&FarmOperator{},
		&Feed{},
		&Supply{},
		&FeedPurchase{},
		&SupplyPurchase{},
		&FeedStock{},
		&SupplyStock{},
		&FeedMutation{},
		&SupplyMutation{},
		&Livestock{},
		&LivestockPurchase{},
		&LivestockDepletion{},
		&LivestockSale{},
		&LivestockMutation{},
		&Recording{},
		&FeedUsage{},
	}
}
