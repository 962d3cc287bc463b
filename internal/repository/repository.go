package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/willbeeching/boilerjuice/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// StateRepo persists the per-tank engine state. Save is called synchronously
// after every mutation so a crash between mutation and flush cannot silently
// drop an accepted reading.
type StateRepo interface {
	Save(ctx context.Context, s models.TankState) error
	Load(ctx context.Context, tankID string) (models.TankState, error)
}

// EventRepo is the append-only tank event log with filtered access.
type EventRepo interface {
	Append(ctx context.Context, e models.TankEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.TankEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
