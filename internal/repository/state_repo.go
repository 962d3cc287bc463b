package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/willbeeching/boilerjuice/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

var _ StateRepo = (*StateSQLite)(nil)

const (
	upsertStateSQL = `
		INSERT INTO tank_state (tank_id, reference_level, reference_since, cumulative_litres,
			rate_history, seasonal, last_change_at, level_percent, volume_litres,
			capacity_litres, price_pence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tank_id) DO UPDATE SET
			reference_level=excluded.reference_level,
			reference_since=excluded.reference_since,
			cumulative_litres=excluded.cumulative_litres,
			rate_history=excluded.rate_history,
			seasonal=excluded.seasonal,
			last_change_at=excluded.last_change_at,
			level_percent=excluded.level_percent,
			volume_litres=excluded.volume_litres,
			capacity_litres=excluded.capacity_litres,
			price_pence=excluded.price_pence,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT tank_id, reference_level, reference_since, cumulative_litres,
			rate_history, seasonal, last_change_at, level_percent, volume_litres,
			capacity_litres, price_pence, updated_at
		FROM tank_state WHERE tank_id=?
	`
)

// marshalJSONColumn serializes a history/buckets value, mapping empty to "".
func marshalJSONColumn(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nullableTime maps a zero time to NULL so "never happened" survives a
// round trip instead of coming back as year one.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Save upserts the tank_state row for the state's tank id.
func (r *StateSQLite) Save(ctx context.Context, state models.TankState) error {
	if state.TankID == "" {
		return errors.New("tank state has no tank id")
	}

	historyJSON, err := marshalJSONColumn(state.RateHistory)
	if err != nil {
		return fmt.Errorf("marshal rate history: %w", err)
	}
	seasonalJSON, err := marshalJSONColumn(state.Seasonal)
	if err != nil {
		return fmt.Errorf("marshal seasonal buckets: %w", err)
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	} else {
		updatedAt = updatedAt.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertStateSQL,
		state.TankID,
		state.ReferenceLevel,
		nullableTime(state.ReferenceSince),
		state.CumulativeLitres,
		historyJSON,
		seasonalJSON,
		nullableTime(state.LastLevelChangeAt),
		state.LevelPercent,
		state.VolumeLitres,
		state.CapacityLitres,
		state.PricePence,
		updatedAt,
	)
	return err
}

// Load fetches the state row for a tank. A missing row returns a zero state
// with no error; the engine then treats the first reading as a seed.
func (r *StateSQLite) Load(ctx context.Context, tankID string) (models.TankState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, tankID)

	var (
		s            models.TankState
		refSince     sql.NullTime
		lastChange   sql.NullTime
		historyJSON  sql.NullString
		seasonalJSON sql.NullString
		price        sql.NullFloat64
	)
	if err := row.Scan(
		&s.TankID,
		&s.ReferenceLevel,
		&refSince,
		&s.CumulativeLitres,
		&historyJSON,
		&seasonalJSON,
		&lastChange,
		&s.LevelPercent,
		&s.VolumeLitres,
		&s.CapacityLitres,
		&price,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TankState{}, nil // no state yet
		}
		return models.TankState{}, err
	}

	if refSince.Valid {
		s.ReferenceSince = refSince.Time.UTC()
	}
	if lastChange.Valid {
		s.LastLevelChangeAt = lastChange.Time.UTC()
	}
	if price.Valid {
		p := price.Float64
		s.PricePence = &p
	}
	if historyJSON.Valid && historyJSON.String != "" {
		if err := json.Unmarshal([]byte(historyJSON.String), &s.RateHistory); err != nil {
			return models.TankState{}, fmt.Errorf("unmarshal rate history: %w", err)
		}
	}
	if seasonalJSON.Valid && seasonalJSON.String != "" {
		if err := json.Unmarshal([]byte(seasonalJSON.String), &s.Seasonal); err != nil {
			return models.TankState{}, fmt.Errorf("unmarshal seasonal buckets: %w", err)
		}
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
