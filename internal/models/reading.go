package models

import "time"

// Reading is one snapshot of tank data as reported by BoilerJuice.
// It is an input to the engine and is not retained beyond the call.
type Reading struct {
	LevelPercent   float64   `json:"level_percent"`
	VolumeLitres   float64   `json:"volume_litres"`
	CapacityLitres float64   `json:"capacity_litres"`
	PricePence     *float64  `json:"price_pence,omitempty"` // pence per litre, nil when the price page gave nothing
	ObservedAt     time.Time `json:"observed_at"`
}

// TankInfo carries the static tank attributes scraped alongside a reading.
type TankInfo struct {
	TankID   string `json:"tank_id"`
	Name     string `json:"name,omitempty"`
	HeightCM int    `json:"height_cm,omitempty"`
	OilType  string `json:"oil_type,omitempty"`
}
