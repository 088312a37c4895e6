package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Harry166/stro/internal/domain/models"
	"github.com/Harry166/stro/internal/usecase"
	"github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/queue"
)

type RankingRefresher interface {
	Refresh(ctx context.Context) (*models.RankingSnapshot, error)
}

type AlertSweeper interface {
	Sweep(ctx context.Context) (models.SweepReport, error)
}

type UserLister interface {
	Users(ctx context.Context) ([]int64, error)
}

type CacheSweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

type Config struct {
	RefreshEvery    time.Duration
	SweepEvery      time.Duration
	CacheSweepEvery time.Duration
	CacheMaxAge     time.Duration
	JobTimeout      time.Duration
}

// Scheduler runs the background tasks: ranking refresh (also once at
// start), alert sweep and cache cleanup. Each task runs in singleton mode so
// a slow run is never overlapped by the next tick.
type Scheduler struct {
	cron    *gocron.Scheduler
	cfg     Config
	l       *logger.Logger
	ranking RankingRefresher
	alerts  AlertSweeper
	users   UserLister
	jobs    queue.Publisher
	cache   CacheSweeper
}

// New builds a scheduler. jobs may be nil, in which case alert sweeps run
// in-process instead of being fanned out as one queue job per user.
func New(cfg Config, ranking RankingRefresher, alerts AlertSweeper, users UserLister, jobs queue.Publisher, cache CacheSweeper, l *logger.Logger) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 20 * time.Minute
	}
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = 720 * time.Minute
	}
	return &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		cfg:     cfg,
		l:       logger.Or(l),
		ranking: ranking,
		alerts:  alerts,
		users:   users,
		jobs:    jobs,
		cache:   cache,
	}
}

func (s *Scheduler) Start() error {
	s.cron.SingletonModeAll()

	if _, err := s.cron.Every(s.cfg.RefreshEvery).Tag("ranking-refresh").Do(s.run("ranking-refresh", s.RefreshRankings)); err != nil {
		return fmt.Errorf("schedule ranking refresh: %w", err)
	}
	if _, err := s.cron.Every(s.cfg.SweepEvery).WaitForSchedule().Tag("alert-sweep").Do(s.run("alert-sweep", s.SweepAlerts)); err != nil {
		return fmt.Errorf("schedule alert sweep: %w", err)
	}
	if s.cache != nil {
		if _, err := s.cron.Every(s.cfg.CacheSweepEvery).WaitForSchedule().Tag("cache-sweep").Do(s.run("cache-sweep", s.SweepCache)); err != nil {
			return fmt.Errorf("schedule cache sweep: %w", err)
		}
	}

	s.cron.StartAsync()
	s.l.Info("scheduler started",
		logger.Duration("refresh_every", s.cfg.RefreshEvery),
		logger.Duration("sweep_every", s.cfg.SweepEvery),
		logger.Duration("cache_sweep_every", s.cfg.CacheSweepEvery),
		logger.Bool("queued_sweeps", s.jobs != nil))
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.l.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.l.Error("scheduled task failed", logger.String("task", name), logger.Error(err))
			return
		}
		s.l.Debug("scheduled task done", logger.String("task", name), logger.Duration("elapsed", time.Since(start)))
	}
}

func (s *Scheduler) RefreshRankings(ctx context.Context) error {
	snap, err := s.ranking.Refresh(ctx)
	if err != nil {
		return err
	}
	s.l.Info("rankings refreshed", logger.Int64("version", int64(snap.Version)), logger.Int("items", len(snap.Items)))
	return nil
}

// SweepAlerts enqueues one sweep job per user when a queue is configured,
// otherwise sweeps every user in-process.
func (s *Scheduler) SweepAlerts(ctx context.Context) error {
	if s.jobs == nil {
		_, err := s.alerts.Sweep(ctx)
		return err
	}
	users, err := s.users.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	queued := 0
	for _, u := range users {
		if err := s.jobs.Enqueue(ctx, usecase.SweepUserJobType, usecase.SweepUserPayload{UserID: u}); err != nil {
			s.l.Warn("enqueue sweep job", logger.UserID(u), logger.Error(err))
			continue
		}
		queued++
	}
	s.l.Info("alert sweep jobs queued", logger.Int("users", len(users)), logger.Int("queued", queued))
	return nil
}

func (s *Scheduler) SweepCache(ctx context.Context) error {
	n, err := s.cache.Sweep(ctx, s.cfg.CacheMaxAge)
	if err != nil {
		return err
	}
	s.l.Info("cache swept", logger.Int("removed", n))
	return nil
}
