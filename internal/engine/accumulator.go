package engine

import "github.com/willbeeching/boilerjuice/internal/models"

// recordConsumption adds a consumption delta to the cumulative total and
// upserts today's rate sample into the bounded history. Returns the rate.
//
// Upserting (rather than appending) makes same-day re-ingestion idempotent:
// a reading replayed after a restart replaces today's sample instead of
// stacking a duplicate.
func (e *Engine) recordConsumption(st *models.TankState, deltaLitres, elapsedDays float64, today string) float64 {
	if deltaLitres < 0 {
		// Cumulative consumption is monotonic between resets; refill
		// detection upstream should make this unreachable.
		deltaLitres = 0
	}
	rate := deltaLitres / elapsedDays

	st.CumulativeLitres += deltaLitres
	st.RateHistory = upsertSample(st.RateHistory, today, rate)
	if n := len(st.RateHistory) - e.cfg.RollingDays; n > 0 {
		st.RateHistory = st.RateHistory[n:]
	}
	return rate
}

// RollingAverage is the arithmetic mean of the retained daily-rate samples,
// or zero for an empty history.
func (e *Engine) RollingAverage(st *models.TankState) float64 {
	if len(st.RateHistory) == 0 {
		return 0
	}
	var sum float64
	for _, s := range st.RateHistory {
		sum += s.Rate
	}
	return sum / float64(len(st.RateHistory))
}

func upsertSample(history []models.RateSample, date string, rate float64) []models.RateSample {
	for i := range history {
		if history[i].Date == date {
			history[i].Rate = rate
			return history
		}
	}
	return append(history, models.RateSample{Date: date, Rate: rate})
}
