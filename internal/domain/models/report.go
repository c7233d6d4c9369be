package models

import "time"

// BatchReport is the performance snapshot of one batch on one day. It is
// archived in MongoDB and exported to the reporting spreadsheet.
type BatchReport struct {
	Date           time.Time `bson:"date" json:"date"`
	LivestockID    uint      `bson:"livestock_id" json:"livestock_id"`
	LivestockName  string    `bson:"livestock_name" json:"livestock_name"`
	FarmID         uint      `bson:"farm_id" json:"farm_id"`
	FarmName       string    `bson:"farm_name" json:"farm_name"`
	Age            int       `bson:"age" json:"age"`
	Initial        int       `bson:"initial" json:"initial"`
	Population     int       `bson:"population" json:"population"`
	Mortality      int       `bson:"mortality" json:"mortality"`
	Culling        int       `bson:"culling" json:"culling"`
	Sold           int       `bson:"sold" json:"sold"`
	MortalityRate  float64   `bson:"mortality_rate" json:"mortality_rate"`
	Liveability    float64   `bson:"liveability" json:"liveability"`
	AvgWeight      float64   `bson:"avg_weight" json:"avg_weight"`
	CumulativeFeed float64   `bson:"cumulative_feed" json:"cumulative_feed"`
	FCR            float64   `bson:"fcr" json:"fcr"`
	IP             float64   `bson:"ip" json:"ip"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
