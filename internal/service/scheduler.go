package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives the pipeline: one cooperative loop running the
// stage drivers in fixed order, a configured sleep between cycles and
// a short recovery sleep after a failed cycle. Cycles never overlap,
// so a note discovered by this cycle's collection pass is only
// eligible for later stages in the next cycle.
type Scheduler struct {
	drivers          []StageDriver
	clock            Clock
	logger           *zap.Logger
	errors           errorRecorder
	cycleInterval    time.Duration
	recoveryInterval time.Duration
	stopCh           chan struct{}
}

func NewScheduler(drivers []StageDriver, clock Clock, logger *zap.Logger, errors errorRecorder,
	cycleInterval, recoveryInterval time.Duration) *Scheduler {
	return &Scheduler{
		drivers:          drivers,
		clock:            clock,
		logger:           logger,
		errors:           errors,
		cycleInterval:    cycleInterval,
		recoveryInterval: recoveryInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start launches the scheduling loop. It returns immediately; the loop
// runs until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting pipeline scheduler",
		zap.Duration("cycle_interval", s.cycleInterval),
		zap.Int("drivers", len(s.drivers)))

	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-s.stopCh:
			s.logger.Info("Scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		default:
		}

		sleep := s.cycleInterval
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Error("Cycle failed", zap.Error(err))
			s.errors.RecordPipelineError("scheduler", nil, nil, "cycle failed", err.Error())
			sleep = s.recoveryInterval
		}

		if !s.clock.Sleep(ctx, sleep) {
			s.logger.Info("Scheduler context cancelled")
			return
		}
	}
}

// RunCycle runs all stage drivers once, in order. The first driver
// failure aborts the cycle; a panic inside a driver is recovered and
// reported the same way.
func (s *Scheduler) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
		}
	}()

	start := s.clock.Now()
	for _, driver := range s.drivers {
		if err := driver.Run(ctx); err != nil {
			return fmt.Errorf("%s stage failed: %w", driver.Name(), err)
		}
	}

	s.logger.Debug("Cycle completed",
		zap.Duration("duration", s.clock.Now().Sub(start)))
	return nil
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown requested")
}
