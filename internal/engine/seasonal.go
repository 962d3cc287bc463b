package engine

import (
	"time"

	"github.com/willbeeching/boilerjuice/internal/models"
)

// Season labels, fixed meteorological boundaries.
const (
	SeasonWinter = "winter" // Dec-Feb
	SeasonSpring = "spring" // Mar-May
	SeasonSummer = "summer" // Jun-Aug
	SeasonAutumn = "autumn" // Sep-Nov
)

// SeasonOf maps a date to its meteorological season.
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

// recordSeasonal folds a rate sample into the running mean of today's
// season. Buckets are never cleared by Reset; they track long-lived trends.
func (e *Engine) recordSeasonal(st *models.TankState, rate float64, today time.Time) {
	if st.Seasonal == nil {
		st.Seasonal = make(map[string]models.SeasonBucket, 4)
	}
	b := st.Seasonal[SeasonOf(today)]
	b.Count++
	b.Sum += rate
	st.Seasonal[SeasonOf(today)] = b
}

// CurrentSeasonAverage returns the running mean for the season containing
// now. ok is false when that season has no samples yet.
func (e *Engine) CurrentSeasonAverage(st *models.TankState, now time.Time) (avg float64, ok bool) {
	b := st.Seasonal[SeasonOf(now)]
	if b.Count == 0 {
		return 0, false
	}
	return b.Sum / float64(b.Count), true
}
