// Package scheduler drives time-based e-class transitions: it reminds
// subscribers shortly before a class, starts it at its start time and
// finishes it once its duration has elapsed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultInterval is how often due e-classes are scanned.
	DefaultInterval = time.Minute
	pageSize        = 100
	activeFilter    = `status = "planned" OR status = "in_progress"`
)

// Lifecycle is the subset of the e-class manager the scheduler drives.
type Lifecycle interface {
	List(ctx context.Context, filter string, pageSize int, pageToken string) (domain.Page, error)
	RemindClass(ctx context.Context, classID string) (bool, error)
	Start(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)
	Finish(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)
}

// Config controls scan cadence and reminder timing.
type Config struct {
	Interval     time.Duration
	ReminderLead time.Duration
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = domain.DefaultReminderLead
	}
	return c
}

// Result counts what one tick did.
type Result struct {
	Reminded int
	Started  int
	Finished int
	Failed   int
}

// Scheduler scans active e-classes on a cron schedule.
type Scheduler struct {
	lifecycle Lifecycle
	cfg       Config
	clock     func() time.Time
}

// New builds a scheduler. A nil clock uses time.Now.
func New(lifecycle Lifecycle, cfg Config, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{lifecycle: lifecycle, cfg: cfg.normalized(), clock: clock}
}

// Run ticks once immediately and then every interval until ctx ends.
// Overlapping ticks are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil || s.lifecycle == nil {
		return fmt.Errorf("scheduler lifecycle is required")
	}
	logger := cron.PrintfLogger(log.Default())
	runner := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	job := cron.FuncJob(func() { s.tick(ctx) })
	if _, err := runner.AddJob("@every "+s.cfg.Interval.String(), job); err != nil {
		return fmt.Errorf("schedule e-class scan: %w", err)
	}

	s.tick(ctx)
	runner.Start()
	log.Printf("[e-class:scheduler] scanning every %s", s.cfg.Interval)
	<-ctx.Done()
	<-runner.Stop().Done()
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.Tick(ctx)
	if err != nil {
		log.Printf("[e-class:scheduler] warn: scan failed: %v", err)
		return
	}
	if result != (Result{}) {
		log.Printf("[e-class:scheduler] reminded=%d started=%d finished=%d failed=%d",
			result.Reminded, result.Started, result.Finished, result.Failed)
	}
}

// Tick performs one scan at the current clock time.
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	now := s.clock()
	var result Result
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := s.lifecycle.List(ctx, activeFilter, pageSize, token)
		if err != nil {
			return result, fmt.Errorf("list active eclasses: %w", err)
		}
		for _, e := range page.Eclasses {
			s.advance(ctx, now, e, &result)
		}
		if page.NextPageToken == "" {
			return result, nil
		}
		token = page.NextPageToken
	}
}

// advance applies every step that is due for e at now.
func (s *Scheduler) advance(ctx context.Context, now time.Time, e domain.Eclass, result *Result) {
	status := e.Status
	if status == domain.StatusPlanned {
		if now.Before(e.Start) {
			if !e.Reminded && !now.Before(e.Start.Add(-s.cfg.ReminderLead)) {
				reminded, err := s.lifecycle.RemindClass(ctx, e.ID)
				if s.failed(e.ID, "remind", err, result) {
					return
				}
				if reminded {
					result.Reminded++
				}
			}
			return
		}
		if _, err := s.lifecycle.Start(ctx, domain.SystemActor, e.ID); s.failed(e.ID, "start", err, result) {
			return
		}
		result.Started++
		status = domain.StatusInProgress
	}
	if status == domain.StatusInProgress && !now.Before(e.End()) {
		if _, err := s.lifecycle.Finish(ctx, domain.SystemActor, e.ID); s.failed(e.ID, "finish", err, result) {
			return
		}
		result.Finished++
	}
}

// failed logs err and reports whether the step failed. Status rejections
// mean another caller moved the e-class first and are not counted.
func (s *Scheduler) failed(classID, step string, err error, result *Result) bool {
	if err == nil {
		return false
	}
	if apperrors.HasCode(err, apperrors.CodeEclassInvalidStatusTransition) {
		log.Printf("[e-class:%s] %s skipped: %v", classID, step, err)
		return true
	}
	if domain.IsIntegrityFault(err) {
		log.Printf("[e-class:%s] %s integrity fault: %v", classID, step, err)
	} else if !errors.Is(err, context.Canceled) {
		log.Printf("[e-class:%s] warn: %s failed: %v", classID, step, err)
	}
	result.Failed++
	return true
}
