package repository_test

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/willbeeching/boilerjuice/internal/repository"
)

func TestUserRepository_Create_ReturnsInsertID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "hash").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create("alice", "hash")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != 7 {
		t.Fatalf("Create() expected id 7, got %d", id)
	}
}

func TestUserRepository_GetByUsername_NotFoundReturnsNilNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash FROM users")).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetByUsername("nobody")
	if err != nil {
		t.Fatalf("GetByUsername() unexpected error: %v", err)
	}
	if u != nil {
		t.Fatalf("GetByUsername() expected nil user, got %+v", u)
	}
}
