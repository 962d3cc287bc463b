package engine

import (
	"math"
	"time"

	"github.com/willbeeching/boilerjuice/internal/models"
)

// minElapsedDays floors the elapsed-time computation. Same-day re-polls and
// non-monotonic timestamps would otherwise divide by a near-zero interval
// and produce absurd rates.
const minElapsedDays = 1.0

// seed establishes the baseline from the first reading. No consumption is
// recorded; there is no history to measure against yet.
func (e *Engine) seed(st *models.TankState, level float64, now time.Time) {
	st.ReferenceLevel = level
	st.ReferenceSince = now.UTC()
	st.LastLevelChangeAt = now.UTC()
}

// levelChanged reports whether an incoming level is new information, using
// an epsilon tolerance to absorb floating-point and reporting noise.
func (e *Engine) levelChanged(reference, level float64) bool {
	return math.Abs(level-reference) > e.cfg.EpsilonPercent
}

// elapsedDays returns the fractional days between the reference instant and
// now, floored at one day. clamped is true when the floor was applied,
// which includes the anomalous case of now preceding the reference.
func elapsedDays(since, now time.Time) (days float64, clamped bool) {
	days = now.Sub(since).Hours() / 24
	if days < minElapsedDays {
		return minElapsedDays, true
	}
	return days, false
}
