package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willbeeching/boilerjuice/internal/models"
)

var day0 = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func reading(levelPct, capacity float64, at time.Time) models.Reading {
	return models.Reading{
		LevelPercent:   levelPct,
		VolumeLitres:   levelPct / 100 * capacity,
		CapacityLitres: capacity,
		ObservedAt:     at,
	}
}

func TestIngest_FirstReadingSeedsReference(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}

	res := e.Ingest(st, reading(85, 1000, day(0)), day(0))

	assert.Equal(t, ChangeSeeded, res.Change)
	assert.Equal(t, 85.0, st.ReferenceLevel)
	assert.Equal(t, day(0), st.ReferenceSince)
	assert.Zero(t, st.CumulativeLitres)
	assert.Empty(t, st.RateHistory)
}

func TestIngest_RepeatedLevelIsIdempotent(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))

	// The site re-reports the same level for four days.
	for i := 1; i <= 4; i++ {
		res := e.Ingest(st, reading(85, 1000, day(i)), day(i))
		assert.Equal(t, ChangeUnchanged, res.Change)
	}

	assert.Zero(t, st.CumulativeLitres)
	assert.Empty(t, st.RateHistory)
	// Reference instant must still be the original observation.
	assert.Equal(t, day(0), st.ReferenceSince)
}

// Spec scenario: 850 L at day 0, repeated through day 4, 800 L at day 5.
// Elapsed is 5 days, delta 50 L, rate 10 L/day.
func TestIngest_SparseDropComputesRateAgainstOriginalReference(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))
	for i := 1; i <= 4; i++ {
		e.Ingest(st, reading(85, 1000, day(i)), day(i))
	}

	res := e.Ingest(st, reading(80, 1000, day(5)), day(5))

	require.Equal(t, ChangeConsumption, res.Change)
	assert.InDelta(t, 5.0, res.ElapsedDays, 1e-9)
	assert.InDelta(t, 50.0, res.DeltaLitres, 1e-9)
	assert.InDelta(t, 10.0, res.RateLitres, 1e-9)
	assert.InDelta(t, 50.0, st.CumulativeLitres, 1e-9)
	require.Len(t, st.RateHistory, 1)
	assert.Equal(t, "2025-01-15", st.RateHistory[0].Date)
	assert.InDelta(t, 10.0, res.Metrics.DailyRateLitres, 1e-9)
}

func TestIngest_RefillResetsReferenceWithoutCountingConsumption(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(20, 1000, day(0)), day(0))

	res := e.Ingest(st, reading(90, 1000, day(1)), day(1))

	assert.Equal(t, ChangeRefill, res.Change)
	assert.Zero(t, st.CumulativeLitres)
	assert.Empty(t, st.RateHistory)
	assert.Equal(t, 90.0, st.ReferenceLevel)
	assert.Equal(t, day(1), st.ReferenceSince)
}

func TestIngest_RiseWithinNoiseIsZeroDeltaConsumption(t *testing.T) {
	e := New(Config{RefillThresholdPercent: 0.5})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(50, 1000, day(0)), day(0))

	res := e.Ingest(st, reading(50.3, 1000, day(1)), day(1))

	assert.Equal(t, ChangeConsumption, res.Change)
	assert.Zero(t, res.DeltaLitres)
	assert.Zero(t, st.CumulativeLitres)
	assert.Equal(t, 50.3, st.ReferenceLevel)
	require.Len(t, st.RateHistory, 1)
	assert.Zero(t, st.RateHistory[0].Rate)
}

func TestIngest_SameDayReplayUpsertsInsteadOfStacking(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))
	e.Ingest(st, reading(80, 1000, day(5)), day(5))

	// A marginally different level on the same day replaces that day's
	// sample rather than appending a second one.
	later := day(5).Add(2 * time.Hour)
	e.Ingest(st, reading(79.9, 1000, later), later)

	assert.Len(t, st.RateHistory, 1)
}

func TestIngest_ReadThroughFieldsRefreshOnUnchangedLevel(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))

	price := 63.4
	r := reading(85, 1200, day(1))
	r.PricePence = &price
	res := e.Ingest(st, r, day(1))

	assert.Equal(t, ChangeUnchanged, res.Change)
	assert.Equal(t, 1200.0, st.CapacityLitres)
	require.NotNil(t, st.PricePence)
	assert.Equal(t, price, *st.PricePence)
}

func TestIngest_OutOfRangeInputIsClampedAndFlagged(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}

	res := e.Ingest(st, models.Reading{LevelPercent: 130, VolumeLitres: -5, CapacityLitres: 1000}, day(0))

	assert.Equal(t, ChangeSeeded, res.Change)
	assert.Len(t, res.Anomalies, 2)
	assert.Equal(t, 100.0, st.ReferenceLevel)
	assert.Zero(t, st.VolumeLitres)
}

func TestIngest_BackwardTimestampClampsElapsedToOneDay(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(5)), day(5))

	res := e.Ingest(st, reading(80, 1000, day(4)), day(4)) // clock went backwards

	require.Equal(t, ChangeConsumption, res.Change)
	assert.Equal(t, minElapsedDays, res.ElapsedDays)
	assert.NotEmpty(t, res.Anomalies)
	assert.InDelta(t, 50.0, res.RateLitres, 1e-9)
}

func TestReset_ClearsCountersButKeepsReference(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))
	e.Ingest(st, reading(80, 1000, day(2)), day(2))
	seasonal := len(st.Seasonal)

	e.Reset(st)

	assert.Zero(t, st.CumulativeLitres)
	assert.Empty(t, st.RateHistory)
	assert.Equal(t, 80.0, st.ReferenceLevel)
	assert.Equal(t, day(2), st.ReferenceSince)
	assert.Len(t, st.Seasonal, seasonal, "seasonal buckets survive a reset")

	// The next drop still measures elapsed days from the pre-reset reference.
	res := e.Ingest(st, reading(75, 1000, day(6)), day(6))
	assert.InDelta(t, 4.0, res.ElapsedDays, 1e-9)
	assert.InDelta(t, 12.5, res.RateLitres, 1e-9)
}

func TestSetConsumption_OverridesTotalAndSeedsRate(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	rate := 15.0

	require.NoError(t, e.SetConsumption(st, 500, &rate, day(0)))

	assert.Equal(t, 500.0, st.CumulativeLitres)
	assert.InDelta(t, 15.0, e.RollingAverage(st), 1e-9)
}

func TestSetConsumption_WithoutRateKeepsHistory(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}
	e.Ingest(st, reading(85, 1000, day(0)), day(0))
	e.Ingest(st, reading(80, 1000, day(2)), day(2))
	before := len(st.RateHistory)

	require.NoError(t, e.SetConsumption(st, 123, nil, day(3)))

	assert.Equal(t, 123.0, st.CumulativeLitres)
	assert.Len(t, st.RateHistory, before)
}

func TestSetConsumption_RejectsNegativeValues(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{TankID: "12345"}

	err := e.SetConsumption(st, -1, nil, day(0))
	require.ErrorIs(t, err, ErrNegativeConsumption)

	bad := -3.0
	err = e.SetConsumption(st, 10, &bad, day(0))
	require.ErrorIs(t, err, ErrNegativeConsumption)
	assert.Zero(t, st.CumulativeLitres, "failed override must not mutate state")
}

func TestMetrics_CumulativeKWhUsesConfiguredFactor(t *testing.T) {
	e := New(Config{KWhPerLitre: 10.35})
	st := &models.TankState{TankID: "12345", CumulativeLitres: 100}

	m := e.Metrics(st, day(0))

	assert.InDelta(t, 1035.0, m.CumulativeKWh, 1e-9)
	assert.Nil(t, m.DaysUntilEmpty)
}

func TestMetrics_VolumeFallsBackToLevelWhenMissing(t *testing.T) {
	e := New(Config{})
	st := &models.TankState{
		TankID:         "12345",
		LevelPercent:   40,
		CapacityLitres: 1000,
		RateHistory:    []models.RateSample{{Date: "2025-01-10", Rate: 20}},
	}

	m := e.Metrics(st, day(0))

	require.NotNil(t, m.DaysUntilEmpty)
	assert.InDelta(t, 20.0, *m.DaysUntilEmpty, 1e-9)
}
