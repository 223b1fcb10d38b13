// Package schedule runs independent periodic tasks that are cancelled together.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// parser accepts 5-field cron expressions and descriptors such as "@every 30s".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Func is one pass of a periodic task.
type Func func(ctx context.Context)

// Interval is a fixed delay between the end of one pass and the start of the
// next. Unlike cron.Every it keeps sub-second precision.
type Interval time.Duration

// Next implements cron.Schedule.
func (i Interval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(i))
}

// Parse parses a cron expression or descriptor into a schedule.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler owns a set of periodic tasks. Each task is a loop: run a pass,
// then wait until the schedule's next time computed from the end of that pass.
// A pass never overlaps with itself.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a scheduler with no tasks.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel, logger: logger}
}

// Every starts a task whose first pass runs immediately and which re-arms d
// after each pass completes.
func (s *Scheduler) Every(name string, d time.Duration, fn Func) {
	s.Go(name, Interval(d), fn)
}

// Cron starts a task on a cron expression.
func (s *Scheduler) Cron(name, expr string, fn Func) error {
	sched, err := Parse(expr)
	if err != nil {
		return err
	}
	s.Go(name, sched, fn)
	return nil
}

// Go starts a task on an arbitrary schedule.
func (s *Scheduler) Go(name string, sched cron.Schedule, fn Func) {
	s.wg.Add(1)
	go s.loop(name, sched, fn)
}

// Stop cancels every task and waits for passes in flight to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(name string, sched cron.Schedule, fn Func) {
	defer s.wg.Done()
	logger := s.logger.With(zap.String("task", name))
	logger.Debug("task started")

	for {
		if s.ctx.Err() != nil {
			logger.Debug("task stopped")
			return
		}
		s.pass(logger, fn)

		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			logger.Debug("task stopped")
			return
		}
	}
}

// pass runs fn on a context that outlives Stop so in-flight I/O completes.
func (s *Scheduler) pass(logger *zap.Logger, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task pass panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn(context.WithoutCancel(s.ctx))
}
