// Package worker hosts the background jobs of the ticket engine.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

const (
	// SweepLockKey guards a sweep run across instances.
	SweepLockKey = "ticket:sweep:lock"

	sweepBatchSize = 100
)

// Locker grants a short-lived exclusive lease on key.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Sweeper deletes the channels of finalized tickets once their scheduled
// deletion time has passed.
type Sweeper struct {
	tickets   repository.TicketRepository
	messenger messaging.Messenger
	locker    Locker
	clock     clock.Clock
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper builds a sweeper. A nil locker makes every run local.
func NewSweeper(
	tickets repository.TicketRepository,
	messenger messaging.Messenger,
	locker Locker,
	clk clock.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
	interval time.Duration,
) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		tickets:   tickets,
		messenger: messenger,
		locker:    locker,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting deletion sweeper", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop halts the loop and waits for an in-flight run. Safe to call twice.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Info("deletion sweeper stopped")
	})
}

func (s *Sweeper) loop(ctx context.Context) {
	s.runLocked(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runLocked(ctx)
		}
	}
}

func (s *Sweeper) runLocked(ctx context.Context) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, SweepLockKey, s.interval)
		if err != nil {
			s.logger.Warn("sweep lock unavailable; sweeping locally", zap.Error(err))
		} else if !acquired {
			s.logger.Debug("sweep lock held elsewhere")
			return
		}
	}
	started := s.clock.Now()
	deleted, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("deletion sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("deletion sweep completed",
			zap.Int("deleted", deleted),
			zap.Duration("duration", s.clock.Now().Sub(started)),
		)
	}
}

// RunOnce processes every ticket currently due and returns how many channels
// were removed. A ticket whose channel fails to delete stays due.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	due, err := s.tickets.ListDueForDeletion(ctx, s.clock.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		ticket := &due[i]
		log := s.logger.With(zap.String("ticket_id", ticket.ID), zap.String("channel_id", ticket.ChannelID))

		deleteErr := s.messenger.DeleteChannel(ctx, ticket.ChannelID)
		if deleteErr != nil && !errors.Is(deleteErr, messaging.ErrChannelNotFound) {
			log.Warn("failed to delete ticket channel", zap.Error(deleteErr))
			s.metrics.RecordSweep("failed")
			continue
		}
		if err := s.tickets.MarkChannelDeleted(ctx, ticket.ID, s.clock.Now()); err != nil {
			log.Error("failed to record channel deletion", zap.Error(err))
			s.metrics.RecordSweep("failed")
			continue
		}
		if deleteErr != nil {
			s.metrics.RecordSweep("already_gone")
		} else {
			s.metrics.RecordSweep("deleted")
		}
		deleted++
	}
	return deleted, nil
}
