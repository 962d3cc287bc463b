package models

import "time"

// RateSample is one day's consumption rate in litres per day.
// Date is a calendar day in "YYYY-MM-DD" form; at most one sample per date.
type RateSample struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

// SeasonBucket accumulates consumption-rate samples for one season.
// The running mean is Sum/Count.
type SeasonBucket struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
}

// TankState is the persisted engine state for a single tank.
//
// ReferenceLevel/ReferenceSince form the consumption baseline: they move only
// when the reported level actually changes, so elapsed days keep accumulating
// against the original observation even when the site repeats a stale value.
type TankState struct {
	TankID            string                  `json:"tank_id"`
	ReferenceLevel    float64                 `json:"reference_level"` // percent
	ReferenceSince    time.Time               `json:"reference_since"`
	CumulativeLitres  float64                 `json:"cumulative_litres"`
	RateHistory       []RateSample            `json:"rate_history,omitempty"`
	Seasonal          map[string]SeasonBucket `json:"seasonal,omitempty"`
	LastLevelChangeAt time.Time               `json:"last_level_change_at"`

	// Read-through snapshot of the most recent reading. These refresh on
	// every ingest regardless of whether the level moved.
	LevelPercent   float64   `json:"level_percent"`
	VolumeLitres   float64   `json:"volume_litres"`
	CapacityLitres float64   `json:"capacity_litres"`
	PricePence     *float64  `json:"price_pence,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Seeded reports whether a reference baseline has been established.
func (s *TankState) Seeded() bool {
	return !s.ReferenceSince.IsZero()
}

// DerivedMetrics is the read surface exposed to the API and websocket:
// everything the original integration published as sensors.
type DerivedMetrics struct {
	TankID           string   `json:"tank_id"`
	LevelPercent     float64  `json:"level_percent"`
	VolumeLitres     float64  `json:"volume_litres"`
	CapacityLitres   float64  `json:"capacity_litres"`
	CumulativeLitres float64  `json:"cumulative_litres"`
	CumulativeKWh    float64  `json:"cumulative_kwh"`
	DailyRateLitres  float64  `json:"daily_rate_litres"` // rolling window mean
	Season           string   `json:"season"`
	SeasonalRate     *float64 `json:"seasonal_rate_litres,omitempty"` // nil until the season has samples
	DaysUntilEmpty   *float64 `json:"days_until_empty,omitempty"`     // nil when the rate is unknown or insignificant
	PricePence       *float64 `json:"price_pence,omitempty"`

	LastLevelChangeAt time.Time `json:"last_level_change_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
