package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
)

type stubSweeper struct {
	swept int64
	err   error
	calls int
}

func (s *stubSweeper) CleanupExpiredCarts(context.Context) (int64, error) {
	s.calls++
	return s.swept, s.err
}

func TestCartExpiryJobRun(t *testing.T) {
	sweeper := &stubSweeper{swept: 3}
	job, err := NewCartExpiryJob(logger.New(logger.Options{ServiceName: "cron-test"}), sweeper, nil)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if job.Name() != "cart_expiry_sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
}

func TestCartExpiryJobPropagatesSweepError(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("db down")}
	job, err := NewCartExpiryJob(logger.New(logger.Options{ServiceName: "cron-test"}), sweeper, nil)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to propagate")
	}
}

func TestNewCartExpiryJobValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})

	if _, err := NewCartExpiryJob(nil, &stubSweeper{}, nil); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewCartExpiryJob(logg, nil, nil); err == nil {
		t.Fatal("expected error for missing sweeper")
	}
}
