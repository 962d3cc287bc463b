package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventLogService_List_NormalizesFilter(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo)

	loc := time.FixedZone("UTC+5", 5*3600)
	from := time.Date(2025, 2, 1, 10, 0, 0, 0, loc)
	to := time.Date(2025, 2, 2, 10, 0, 0, 0, loc)

	_, err := svc.List(context.Background(), LogFilter{From: from, To: to, Type: " refill "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected one List call, got %d", repo.calls)
	}
	if repo.gotFrom.Location() != time.UTC || repo.gotTo.Location() != time.UTC {
		t.Fatalf("expected UTC bounds, got %v and %v", repo.gotFrom, repo.gotTo)
	}
	if !repo.gotFrom.Equal(from) {
		t.Fatalf("normalization must not shift the instant")
	}
	if repo.gotType != "REFILL" {
		t.Fatalf("expected normalized type REFILL, got %q", repo.gotType)
	}
}

func TestEventLogService_List_ZeroBoundsPassThrough(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo)

	if _, err := svc.List(context.Background(), LogFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.gotFrom.IsZero() || !repo.gotTo.IsZero() || repo.gotType != "" {
		t.Fatalf("zero filter must pass through unchanged")
	}
}

func TestEventLogService_List_InvalidRange(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventLogService(repo)

	from := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err := svc.List(context.Background(), LogFilter{From: from, To: to})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("invalid filter must not hit the repository")
	}
}

func TestEventLogService_List_RepoErrorPropagates(t *testing.T) {
	repo := &fakeEventRepo{listErr: errors.New("db down")}
	svc := NewEventLogService(repo)

	if _, err := svc.List(context.Background(), LogFilter{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
