package models

import "time"

// Event types recorded in the tank event log.
const (
	EventRefill   = "REFILL"
	EventReset    = "RESET"
	EventOverride = "OVERRIDE"
	EventAnomaly  = "ANOMALY"
)

// TankEvent is a single log entry.
type TankEvent struct {
	EventID     string    `json:"event_id"`
	TankID      string    `json:"tank_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // REFILL | RESET | OVERRIDE | ANOMALY
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
