package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var errDigestDisabled = errors.New("digest is disabled")

// DigestPlan says when chore digests go out: once a day at At (HH:MM), or
// every Interval when At is empty.
type DigestPlan struct {
	At       string
	Interval time.Duration
}

func (p DigestPlan) Enabled() bool {
	return strings.TrimSpace(p.At) != "" || p.Interval > 0
}

func (p DigestPlan) cronSpec() (string, error) {
	if at := strings.TrimSpace(p.At); at != "" {
		return dailySpec(at)
	}
	if p.Interval <= 0 {
		return "", errDigestDisabled
	}
	seconds := int(p.Interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}

// SchedulerService runs the household's recurring jobs.
type SchedulerService struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewSchedulerService(loc *time.Location, log *zap.SugaredLogger) *SchedulerService {
	return &SchedulerService{
		// A digest still being sent when the next tick fires is not started twice.
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log,
		timeout: 30 * time.Second,
	}
}

// ScheduleDigest registers send on plan. Every run gets its own deadline
// derived from ctx and is skipped once ctx is done.
func (s *SchedulerService) ScheduleDigest(ctx context.Context, plan DigestPlan, send func(context.Context) error) (cron.EntryID, error) {
	spec, err := plan.cronSpec()
	if err != nil {
		return 0, err
	}
	id, err := s.cron.AddFunc(spec, s.digestJob(ctx, send))
	if err != nil {
		return 0, fmt.Errorf("schedule digest %q: %w", spec, err)
	}
	s.log.Infow("digest scheduled", "spec", spec)
	return id, nil
}

func (s *SchedulerService) digestJob(ctx context.Context, send func(context.Context) error) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := send(jobCtx); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.log.Errorw("digest run failed", "error", err)
			}
			return
		}
		s.log.Debugw("digest run finished", "took", time.Since(start).String())
	}
}

func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for a running digest to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// dailySpec turns HH:MM into a seconds-first cron spec.
func dailySpec(at string) (string, error) {
	hh, mm, ok := strings.Cut(at, ":")
	if !ok {
		return "", fmt.Errorf("invalid digest time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in digest time %q", at)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in digest time %q", at)
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
