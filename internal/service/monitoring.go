package service

import (
	"context"
	"fmt"
	"time"

	"github.com/willbeeching/boilerjuice/internal/engine"
	"github.com/willbeeching/boilerjuice/internal/models"
	"github.com/willbeeching/boilerjuice/internal/repository"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
	eng       *engine.Engine
	tankID    string
}

func NewMonitoringService(stateRepo repository.StateRepo, eng *engine.Engine, tankID string) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, eng: eng, tankID: tankID}
}

func (s *MonitoringService) stateKey() string {
	if s.tankID != "" {
		return s.tankID
	}
	return defaultStateKey
}

// State returns the latest persisted tank state. Before the first reading
// arrives this is an empty state under the configured key.
func (s *MonitoringService) State(ctx context.Context) (models.TankState, error) {
	st, err := s.stateRepo.Load(ctx, s.stateKey())
	if err != nil {
		return models.TankState{}, fmt.Errorf("load tank state: %w", err)
	}
	if st.TankID == "" {
		st.TankID = s.stateKey()
	}
	st.UpdatedAt = toUTC(st.UpdatedAt)
	return st, nil
}

// Metrics derives the read surface from the persisted state.
func (s *MonitoringService) Metrics(ctx context.Context, now time.Time) (models.DerivedMetrics, error) {
	st, err := s.State(ctx)
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	return s.eng.Metrics(&st, now), nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
