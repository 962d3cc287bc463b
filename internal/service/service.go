package service

import (
	"context"
	"time"

	"github.com/willbeeching/boilerjuice/internal/engine"
	"github.com/willbeeching/boilerjuice/internal/logger"
	"github.com/willbeeching/boilerjuice/internal/models"
	"github.com/willbeeching/boilerjuice/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Tank exposes the mutating engine operations: ingesting readings and the
// operator-issued reset/override/refresh requests.
type Tank interface {
	Ingest(ctx context.Context, r models.Reading, now time.Time) (models.DerivedMetrics, error)
	Reset(ctx context.Context, now time.Time) error
	SetConsumption(ctx context.Context, litres float64, dailyRate *float64, now time.Time) error
	Refresh(ctx context.Context, now time.Time) (models.DerivedMetrics, error)
}

// Monitoring exposes read-only access to the persisted state and the
// derived metrics.
type Monitoring interface {
	State(ctx context.Context) (models.TankState, error)
	Metrics(ctx context.Context, now time.Time) (models.DerivedMetrics, error)
}

// EventLog exposes the append-only log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.TankEvent, error)
}

// Poller runs the background loop that fetches a reading each cycle.
// Stop via context cancellation in main() for graceful shutdown.
type Poller interface {
	Run(ctx context.Context, tick time.Duration)
}

// ReadingFetcher is what the tank service needs from the scrape client.
type ReadingFetcher interface {
	FetchReading(ctx context.Context, tankID string) (models.Reading, models.TankInfo, error)
}

// Service aggregates all sub-services behind one wiring point.
type Service struct {
	Tank
	Monitoring
	EventLog
	Poller
	Authorization
}

// Deps carries everything the services need from main.
type Deps struct {
	Repos      *repository.Repository
	Engine     engine.Config
	Fetcher    ReadingFetcher
	TankID     string // optional; the fetcher discovers one when empty
	SigningKey string
	TokenTTL   time.Duration
	Log        *logger.Logger
}

func NewService(d Deps) *Service {
	tank := NewTankService(d.Repos.StateRepo, d.Repos.EventRepo, d.Fetcher, engine.New(d.Engine), d.TankID, d.Log)
	return &Service{
		Tank:          tank,
		Monitoring:    NewMonitoringService(d.Repos.StateRepo, engine.New(d.Engine), d.TankID),
		EventLog:      NewEventLogService(d.Repos.EventRepo),
		Poller:        NewPollerService(tank, d.Log),
		Authorization: NewAuthService(d.Repos.Auth, d.SigningKey, d.TokenTTL),
	}
}
