package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/willbeeching/boilerjuice/internal/models"
)

// Defaults for Config fields left at zero.
const (
	DefaultKWhPerLitre            = 10.35 // typical for heating oil
	DefaultEpsilonPercent         = 0.01  // "unchanged" tolerance, percentage points
	DefaultRefillThresholdPercent = 0.5   // rise beyond this is a refill, percentage points
	DefaultRollingDays            = 7
	DefaultMinRateLitres          = 0.05 // rates below this give no depletion estimate
)

// ErrNegativeConsumption rejects operator overrides with negative values.
var ErrNegativeConsumption = errors.New("consumption override must not be negative")

// Config holds the engine tuning knobs. Zero fields fall back to defaults.
type Config struct {
	KWhPerLitre            float64
	EpsilonPercent         float64
	RefillThresholdPercent float64
	RollingDays            int
	MinRateLitres          float64
}

func (c Config) withDefaults() Config {
	if c.KWhPerLitre <= 0 {
		c.KWhPerLitre = DefaultKWhPerLitre
	}
	if c.EpsilonPercent <= 0 {
		c.EpsilonPercent = DefaultEpsilonPercent
	}
	if c.RefillThresholdPercent <= 0 {
		c.RefillThresholdPercent = DefaultRefillThresholdPercent
	}
	if c.RollingDays <= 0 {
		c.RollingDays = DefaultRollingDays
	}
	if c.MinRateLitres <= 0 {
		c.MinRateLitres = DefaultMinRateLitres
	}
	return c
}

// ChangeKind classifies what an ingested reading did to the state.
type ChangeKind string

const (
	ChangeSeeded      ChangeKind = "SEEDED"      // first reading, baseline established
	ChangeUnchanged   ChangeKind = "UNCHANGED"   // repeat of the known level
	ChangeConsumption ChangeKind = "CONSUMPTION" // level dropped (or held within noise)
	ChangeRefill      ChangeKind = "REFILL"      // level rose beyond the refill threshold
)

// IngestResult reports what a reading was classified as and the values the
// engine derived from it. Anomalies lists clamped inputs so the caller can
// log and record them; ingestion itself never fails on them.
type IngestResult struct {
	Change        ChangeKind
	PreviousLevel float64 // reference level before this reading, percent
	DeltaLitres   float64
	ElapsedDays   float64
	RateLitres    float64 // litres per day for this transition
	Anomalies     []string
	Metrics       models.DerivedMetrics
}

// Engine implements the consumption-tracking algorithm over an explicitly
// owned TankState. It holds no clock, performs no I/O and takes no locks:
// callers pass now to every operation and serialize access themselves.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Ingest applies one reading to the state. Out-of-range numeric input is
// clamped and flagged, never rejected, so a bad sample cannot stall the
// pipeline.
func (e *Engine) Ingest(st *models.TankState, r models.Reading, now time.Time) IngestResult {
	res := IngestResult{Change: ChangeUnchanged, PreviousLevel: st.ReferenceLevel}

	r = e.sanitize(r, &res)

	// Read-through fields refresh on every reading, level change or not.
	st.LevelPercent = r.LevelPercent
	st.VolumeLitres = r.VolumeLitres
	st.CapacityLitres = r.CapacityLitres
	if r.PricePence != nil {
		st.PricePence = r.PricePence
	}
	st.UpdatedAt = now.UTC()

	switch {
	case !st.Seeded():
		e.seed(st, r.LevelPercent, now)
		res.Change = ChangeSeeded

	case !e.levelChanged(st.ReferenceLevel, r.LevelPercent):
		// Repeat of stale data: keep accumulating elapsed time against the
		// original reference instant. Also a no-op for re-delivered readings.
		res.Change = ChangeUnchanged

	default:
		e.applyTransition(st, r, now, &res)
	}

	res.Metrics = e.Metrics(st, now)
	return res
}

// applyTransition handles a genuinely new level: classify, accumulate, and
// move the reference.
func (e *Engine) applyTransition(st *models.TankState, r models.Reading, now time.Time, res *IngestResult) {
	elapsed, clamped := elapsedDays(st.ReferenceSince, now)
	if clamped {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("elapsed time since reference %s below one day, clamped", st.ReferenceSince.Format(time.RFC3339)))
	}
	res.ElapsedDays = elapsed

	if e.classify(st.ReferenceLevel, r.LevelPercent) == transitionRefill {
		res.Change = ChangeRefill
		res.DeltaLitres = PercentToLitres(r.LevelPercent-st.ReferenceLevel, r.CapacityLitres)
	} else {
		res.Change = ChangeConsumption
		deltaPct := consumptionDeltaPercent(st.ReferenceLevel, r.LevelPercent)
		delta := PercentToLitres(deltaPct, r.CapacityLitres)
		if delta < 0 || math.IsNaN(delta) {
			res.Anomalies = append(res.Anomalies,
				fmt.Sprintf("negative consumption delta %.2f L clamped to zero", delta))
			delta = 0
		}
		res.DeltaLitres = delta
		res.RateLitres = e.recordConsumption(st, delta, elapsed, dateKey(now))
		e.recordSeasonal(st, res.RateLitres, now)
	}

	st.ReferenceLevel = r.LevelPercent
	st.ReferenceSince = now.UTC()
	st.LastLevelChangeAt = now.UTC()
}

// Reset zeroes the cumulative counter and clears the rate history. The
// reference and the seasonal buckets survive: the next reading must still
// compute elapsed days from the pre-reset reference instant, and season
// history is long-lived.
func (e *Engine) Reset(st *models.TankState) {
	st.CumulativeLitres = 0
	st.RateHistory = nil
}

// SetConsumption overrides the cumulative counter. When dailyRate is
// non-nil the rate history is replaced with a single same-day sample so the
// rolling average immediately reflects the manual value.
func (e *Engine) SetConsumption(st *models.TankState, litres float64, dailyRate *float64, now time.Time) error {
	if litres < 0 {
		return fmt.Errorf("%w: %.2f litres", ErrNegativeConsumption, litres)
	}
	if dailyRate != nil && *dailyRate < 0 {
		return fmt.Errorf("%w: %.2f litres/day", ErrNegativeConsumption, *dailyRate)
	}
	st.CumulativeLitres = litres
	if dailyRate != nil {
		st.RateHistory = []models.RateSample{{Date: dateKey(now), Rate: *dailyRate}}
	}
	return nil
}

// Metrics derives the read surface from the state. Pure; no mutation.
func (e *Engine) Metrics(st *models.TankState, now time.Time) models.DerivedMetrics {
	m := models.DerivedMetrics{
		TankID:            st.TankID,
		LevelPercent:      st.LevelPercent,
		VolumeLitres:      st.VolumeLitres,
		CapacityLitres:    st.CapacityLitres,
		CumulativeLitres:  st.CumulativeLitres,
		CumulativeKWh:     LitresToKWh(st.CumulativeLitres, e.cfg.KWhPerLitre),
		DailyRateLitres:   e.RollingAverage(st),
		Season:            SeasonOf(now),
		PricePence:        st.PricePence,
		LastLevelChangeAt: st.LastLevelChangeAt,
		UpdatedAt:         st.UpdatedAt,
	}

	if avg, ok := e.CurrentSeasonAverage(st, now); ok {
		m.SeasonalRate = &avg
	}

	volume := st.VolumeLitres
	if volume <= 0 && st.CapacityLitres > 0 {
		// The site sometimes omits the litres figure; fall back to the level.
		volume = PercentToLitres(st.LevelPercent, st.CapacityLitres)
	}
	if days, ok := e.DaysUntilEmpty(volume, m.DailyRateLitres); ok {
		m.DaysUntilEmpty = &days
	}
	return m
}

// sanitize clamps out-of-range reading fields, flagging each adjustment.
func (e *Engine) sanitize(r models.Reading, res *IngestResult) models.Reading {
	if r.LevelPercent < 0 || r.LevelPercent > 100 {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("level %.2f%% outside [0,100], clamped", r.LevelPercent))
		r.LevelPercent = math.Min(math.Max(r.LevelPercent, 0), 100)
	}
	if r.VolumeLitres < 0 {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("negative volume %.2f L clamped to zero", r.VolumeLitres))
		r.VolumeLitres = 0
	}
	if r.CapacityLitres < 0 {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("negative capacity %.2f L clamped to zero", r.CapacityLitres))
		r.CapacityLitres = 0
	}
	return r
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
