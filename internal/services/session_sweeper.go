package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/repositories"
)

// SessionSweeper periodically drops expired sessions from stores that
// have no native expiry.
type SessionSweeper interface {
	Start(ctx context.Context)
	Stop()
}

type sessionSweeper struct {
	repo     repositories.ExpiringSessionRepository
	interval time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewSessionSweeper(repo repositories.ExpiringSessionRepository, interval time.Duration, logger *zap.Logger) SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionSweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start implements SessionSweeper.
func (s *sessionSweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
}

// Stop implements SessionSweeper.
func (s *sessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("session sweeper stopped")
}

func (s *sessionSweeper) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sessionSweeper) sweep(ctx context.Context) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("failed to delete expired sessions", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Debug("expired sessions removed", zap.Int64("count", removed))
	}
}
