package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/willbeeching/boilerjuice/internal/engine"
	"github.com/willbeeching/boilerjuice/internal/logger"
	"github.com/willbeeching/boilerjuice/internal/models"
	"github.com/willbeeching/boilerjuice/internal/repository"
)

// defaultStateKey is the storage key used when no tank id was configured.
// The scrape client still discovers the real tank id for fetching, but the
// persisted state stays under one stable key.
const defaultStateKey = "default"

// ValidationError marks an operator request that was rejected before it
// touched the state. Handlers turn it into a 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// TankService owns the single mutable tank state. Every mutation runs under
// one mutex so concurrent requests and the poller serialize, and the state is
// persisted before the call returns.
type TankService struct {
	mu sync.Mutex

	eng       *engine.Engine
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	fetcher   ReadingFetcher
	tankID    string
	log       *logger.Logger
}

func NewTankService(stateRepo repository.StateRepo, eventRepo repository.EventRepo,
	fetcher ReadingFetcher, eng *engine.Engine, tankID string, log *logger.Logger) *TankService {
	return &TankService{
		eng:       eng,
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		fetcher:   fetcher,
		tankID:    tankID,
		log:       log,
	}
}

func (s *TankService) stateKey() string {
	if s.tankID != "" {
		return s.tankID
	}
	return defaultStateKey
}

// Ingest applies one reading to the state and persists the result. The
// returned metrics reflect the state after the reading.
func (s *TankService) Ingest(ctx context.Context, r models.Reading, now time.Time) (models.DerivedMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(ctx, r, now)
}

func (s *TankService) ingestLocked(ctx context.Context, r models.Reading, now time.Time) (models.DerivedMetrics, error) {
	st, err := s.load(ctx)
	if err != nil {
		return models.DerivedMetrics{}, err
	}

	res := s.eng.Ingest(&st, r, now)
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return models.DerivedMetrics{}, fmt.Errorf("persist tank state: %w", err)
	}

	if res.Change == engine.ChangeRefill {
		s.appendEvent(ctx, models.TankEvent{
			TankID:      st.TankID,
			OccurredAt:  now,
			Type:        models.EventRefill,
			Description: fmt.Sprintf("level rose from %.1f%% to %.1f%%", res.PreviousLevel, r.LevelPercent),
			Metadata:    map[string]float64{"from_percent": res.PreviousLevel, "to_percent": r.LevelPercent},
		})
	}
	for _, a := range res.Anomalies {
		s.log.Warnw("reading anomaly", "tank_id", st.TankID, "anomaly", a)
		s.appendEvent(ctx, models.TankEvent{
			TankID:      st.TankID,
			OccurredAt:  now,
			Type:        models.EventAnomaly,
			Description: a,
		})
	}
	return res.Metrics, nil
}

// Reset zeroes the cumulative consumption and the rolling history. The
// reference reading and the seasonal averages survive.
func (s *TankService) Reset(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	s.eng.Reset(&st)
	st.UpdatedAt = now.UTC()
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return fmt.Errorf("persist tank state: %w", err)
	}

	s.appendEvent(ctx, models.TankEvent{
		TankID:      st.TankID,
		OccurredAt:  now,
		Type:        models.EventReset,
		Description: "cumulative consumption reset",
	})
	return nil
}

// SetConsumption overrides the cumulative total, and optionally the daily
// rate, after a manual correction.
func (s *TankService) SetConsumption(ctx context.Context, litres float64, dailyRate *float64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	if err := s.eng.SetConsumption(&st, litres, dailyRate, now); err != nil {
		if errors.Is(err, engine.ErrNegativeConsumption) {
			return &ValidationError{Reason: err.Error()}
		}
		return err
	}
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return fmt.Errorf("persist tank state: %w", err)
	}

	meta := map[string]any{"litres": litres}
	if dailyRate != nil {
		meta["daily_rate"] = *dailyRate
	}
	s.appendEvent(ctx, models.TankEvent{
		TankID:      st.TankID,
		OccurredAt:  now,
		Type:        models.EventOverride,
		Description: fmt.Sprintf("cumulative consumption set to %.1f litres", litres),
		Metadata:    meta,
	})
	return nil
}

// Refresh fetches a fresh reading from the website and ingests it. The fetch
// happens outside the state lock so a slow site does not block readers of the
// other operations.
func (s *TankService) Refresh(ctx context.Context, now time.Time) (models.DerivedMetrics, error) {
	reading, _, err := s.fetcher.FetchReading(ctx, s.tankID)
	if err != nil {
		return models.DerivedMetrics{}, fmt.Errorf("fetch reading: %w", err)
	}
	reading.ObservedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(ctx, reading, now)
}

func (s *TankService) load(ctx context.Context) (models.TankState, error) {
	st, err := s.stateRepo.Load(ctx, s.stateKey())
	if err != nil {
		return models.TankState{}, fmt.Errorf("load tank state: %w", err)
	}
	if st.TankID == "" {
		st.TankID = s.stateKey()
	}
	return st, nil
}

// appendEvent logs and swallows event log failures: the state write already
// succeeded and the log is advisory.
func (s *TankService) appendEvent(ctx context.Context, ev models.TankEvent) {
	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.log.Errorw("append tank event", "type", ev.Type, "error", err)
	}
}
