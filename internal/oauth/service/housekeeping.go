package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/saltoplay/platform/internal/oauth/store"
)

// HousekeepingService periodically deletes expired authorization codes,
// expired access tokens and expired or revoked refresh tokens.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each deletion is independent; a failure in one
// does not stop the others. It returns the number of rows removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now().UTC()
	s.Logger.Debug("starting housekeeping cleanup")

	tasks := []struct {
		name string
		run  func(context.Context, time.Time) (int64, error)
	}{
		{"authorization codes", s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes},
		{"access tokens", s.Store.AccessTokens().DeleteExpiredAccessTokens},
		{"refresh tokens", s.Store.RefreshTokens().DeleteExpiredRefreshTokens},
	}

	var total int64
	for _, task := range tasks {
		n, err := task.run(ctx, now)
		if err != nil {
			s.Logger.Error("housekeeping: failed to delete expired "+task.name, "error", err)
			continue
		}
		s.Logger.Debug("housekeeping: deleted expired "+task.name, "count", n)
		total += n
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted", total)
	return total
}
