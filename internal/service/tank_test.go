package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/willbeeching/boilerjuice/internal/engine"
	"github.com/willbeeching/boilerjuice/internal/logger"
	"github.com/willbeeching/boilerjuice/internal/models"
)

type fakeStateRepo struct {
	loadResp   models.TankState
	loadErr    error
	saveErr    error
	savedCalls []models.TankState
}

func (f *fakeStateRepo) Load(ctx context.Context, tankID string) (models.TankState, error) {
	return f.loadResp, f.loadErr
}
func (f *fakeStateRepo) Save(ctx context.Context, s models.TankState) error {
	f.savedCalls = append(f.savedCalls, s)
	return f.saveErr
}

type fakeEventRepo struct {
	appendErr error
	events    []models.TankEvent
	listErr   error

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.TankEvent) error {
	f.events = append(f.events, e)
	return f.appendErr
}
func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.TankEvent, error) {
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.listErr
}

type fakeFetcher struct {
	reading models.Reading
	info    models.TankInfo
	err     error

	gotTankID string
	calls     int
}

func (f *fakeFetcher) FetchReading(ctx context.Context, tankID string) (models.Reading, models.TankInfo, error) {
	f.calls++
	f.gotTankID = tankID
	return f.reading, f.info, f.err
}

func newTankService(srepo *fakeStateRepo, erepo *fakeEventRepo, fetcher ReadingFetcher) *TankService {
	return NewTankService(srepo, erepo, fetcher, engine.New(engine.Config{}), "77001", logger.Nop())
}

func lastSavedState(t *testing.T, f *fakeStateRepo) models.TankState {
	t.Helper()
	if len(f.savedCalls) == 0 {
		t.Fatalf("expected at least one Save call")
	}
	return f.savedCalls[len(f.savedCalls)-1]
}

func seededState(level float64, since time.Time) models.TankState {
	return models.TankState{
		TankID:            "77001",
		ReferenceLevel:    level,
		ReferenceSince:    since,
		LastLevelChangeAt: since,
		LevelPercent:      level,
		CapacityLitres:    1000,
	}
}

func TestTankService_Ingest_PersistsState(t *testing.T) {
	since := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	srepo := &fakeStateRepo{loadResp: seededState(85, since)}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	now := since.AddDate(0, 0, 5)
	m, err := svc.Ingest(context.Background(), models.Reading{LevelPercent: 80, CapacityLitres: 1000}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := lastSavedState(t, srepo)
	if st.CumulativeLitres != 50 {
		t.Fatalf("expected cumulative 50 L, got %.2f", st.CumulativeLitres)
	}
	if st.ReferenceLevel != 80 {
		t.Fatalf("expected reference moved to 80, got %.2f", st.ReferenceLevel)
	}
	if m.DailyRateLitres != 10 {
		t.Fatalf("expected 10 L/day, got %.2f", m.DailyRateLitres)
	}
	if len(erepo.events) != 0 {
		t.Fatalf("plain consumption should append no events, got %d", len(erepo.events))
	}
}

func TestTankService_Ingest_RefillAppendsEvent(t *testing.T) {
	since := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	srepo := &fakeStateRepo{loadResp: seededState(20, since)}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	_, err := svc.Ingest(context.Background(), models.Reading{LevelPercent: 90, CapacityLitres: 1000}, since.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(erepo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(erepo.events))
	}
	ev := erepo.events[0]
	if ev.Type != models.EventRefill {
		t.Fatalf("expected %s event, got %s", models.EventRefill, ev.Type)
	}
	if ev.TankID != "77001" {
		t.Fatalf("expected tank id on event, got %q", ev.TankID)
	}
}

func TestTankService_Ingest_AnomalyAppendsEvent(t *testing.T) {
	srepo := &fakeStateRepo{}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	_, err := svc.Ingest(context.Background(), models.Reading{LevelPercent: 130, CapacityLitres: 1000}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(erepo.events) != 1 || erepo.events[0].Type != models.EventAnomaly {
		t.Fatalf("expected one ANOMALY event, got %+v", erepo.events)
	}
}

func TestTankService_Ingest_SaveErrorPropagates(t *testing.T) {
	srepo := &fakeStateRepo{saveErr: errors.New("disk full")}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	_, err := svc.Ingest(context.Background(), models.Reading{LevelPercent: 50, CapacityLitres: 1000}, time.Now())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if len(erepo.events) != 0 {
		t.Fatalf("expected no events after failed save, got %d", len(erepo.events))
	}
}

func TestTankService_Reset_AppendsEventAndKeepsReference(t *testing.T) {
	since := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	st := seededState(60, since)
	st.CumulativeLitres = 340
	st.RateHistory = []models.RateSample{{Date: "2025-01-12", Rate: 11}}
	srepo := &fakeStateRepo{loadResp: st}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	if err := svc.Reset(context.Background(), since.AddDate(0, 0, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := lastSavedState(t, srepo)
	if saved.CumulativeLitres != 0 || saved.RateHistory != nil {
		t.Fatalf("expected cleared counters, got cumulative=%.1f history=%v", saved.CumulativeLitres, saved.RateHistory)
	}
	if !saved.ReferenceSince.Equal(since) {
		t.Fatalf("reset must not move the reference instant")
	}
	if len(erepo.events) != 1 || erepo.events[0].Type != models.EventReset {
		t.Fatalf("expected one RESET event, got %+v", erepo.events)
	}
}

func TestTankService_SetConsumption_NegativeIsValidationError(t *testing.T) {
	srepo := &fakeStateRepo{loadResp: seededState(60, time.Now())}
	svc := newTankService(srepo, &fakeEventRepo{}, nil)

	err := svc.SetConsumption(context.Background(), -5, nil, time.Now())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(srepo.savedCalls) != 0 {
		t.Fatalf("rejected override must not persist")
	}
}

func TestTankService_SetConsumption_AppendsOverrideEvent(t *testing.T) {
	srepo := &fakeStateRepo{loadResp: seededState(60, time.Now())}
	erepo := &fakeEventRepo{}
	svc := newTankService(srepo, erepo, nil)

	rate := 15.0
	if err := svc.SetConsumption(context.Background(), 500, &rate, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := lastSavedState(t, srepo)
	if saved.CumulativeLitres != 500 {
		t.Fatalf("expected cumulative 500, got %.1f", saved.CumulativeLitres)
	}
	if len(erepo.events) != 1 || erepo.events[0].Type != models.EventOverride {
		t.Fatalf("expected one OVERRIDE event, got %+v", erepo.events)
	}
}

func TestTankService_Refresh_FetchesAndIngests(t *testing.T) {
	since := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	srepo := &fakeStateRepo{loadResp: seededState(70, since)}
	fetcher := &fakeFetcher{
		reading: models.Reading{LevelPercent: 65, VolumeLitres: 650, CapacityLitres: 1000},
		info:    models.TankInfo{TankID: "77001"},
	}
	svc := newTankService(srepo, &fakeEventRepo{}, fetcher)

	m, err := svc.Refresh(context.Background(), since.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 || fetcher.gotTankID != "77001" {
		t.Fatalf("expected one fetch for tank 77001, got calls=%d id=%q", fetcher.calls, fetcher.gotTankID)
	}
	if m.LevelPercent != 65 {
		t.Fatalf("expected metrics for the fresh reading, got level %.1f", m.LevelPercent)
	}
	if lastSavedState(t, srepo).CumulativeLitres != 50 {
		t.Fatalf("expected 50 L consumed, got %.1f", lastSavedState(t, srepo).CumulativeLitres)
	}
}

func TestTankService_Refresh_FetchErrorPropagates(t *testing.T) {
	srepo := &fakeStateRepo{}
	fetcher := &fakeFetcher{err: errors.New("site down")}
	svc := newTankService(srepo, &fakeEventRepo{}, fetcher)

	if _, err := svc.Refresh(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if len(srepo.savedCalls) != 0 {
		t.Fatalf("failed fetch must not touch the state")
	}
}

func TestTankService_DefaultStateKey(t *testing.T) {
	svc := NewTankService(&fakeStateRepo{}, &fakeEventRepo{}, nil, engine.New(engine.Config{}), "", logger.Nop())
	if got := svc.stateKey(); got != defaultStateKey {
		t.Fatalf("expected %q, got %q", defaultStateKey, got)
	}
}
