// Package reconcile periodically recounts every denormalized counter from its source table,
// repairing drift left by failed or racing writes.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"go.uber.org/zap"
)

// DefaultSchedule runs a pass every fifteen minutes.
const DefaultSchedule = "@every 15m"

const (
	jobCounters  = "counters"
	opRunOnce    = "reconcile.run_once"
	defaultLimit = 5 * time.Minute
)

var (
	// ErrAlreadyRunning is returned when a pass is requested while another is in progress.
	ErrAlreadyRunning  = errors.New("reconcile: pass already running")
	errMissingCounters = errors.New("reconcile: vote and tag recounters are required")
)

// Recounter recomputes every counter it owns and reports how many rows it visited.
type Recounter interface {
	RecountAll(ctx context.Context) (int, error)
}

// Config configures a Reconciler.
type Config struct {
	Votes    Recounter
	Tags     Recounter
	Schedule string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Report summarizes one pass.
type Report struct {
	Targets  int
	Tags     int
	Duration time.Duration
}

// Reconciler runs recount passes on demand or on a cron schedule. Overlapping passes are skipped.
type Reconciler struct {
	votes    Recounter
	tags     Recounter
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
	running  mapset.Set[string]
}

// New validates the configuration and constructs a Reconciler.
func New(cfg Config) (*Reconciler, error) {
	if cfg.Votes == nil || cfg.Tags == nil {
		return nil, errMissingCounters
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLimit
	}
	return &Reconciler{
		votes:    cfg.Votes,
		tags:     cfg.Tags,
		schedule: schedule,
		timeout:  timeout,
		logger:   records.LoggerOrDefault(cfg.Logger),
		cron:     cron.New(),
		running:  mapset.NewSet[string](),
	}, nil
}

// RunOnce recounts vote counters and then tag counts.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	if !r.running.Add(jobCounters) {
		return Report{}, ErrAlreadyRunning
	}
	defer r.running.Remove(jobCounters)

	started := time.Now()
	targets, err := r.votes.RecountAll(ctx)
	if err != nil {
		records.LogError(r.logger, opRunOnce, "votes_failed", err)
		return Report{}, err
	}
	tags, err := r.tags.RecountAll(ctx)
	if err != nil {
		records.LogError(r.logger, opRunOnce, "tags_failed", err)
		return Report{}, err
	}

	report := Report{Targets: targets, Tags: tags, Duration: time.Since(started)}
	r.logger.Info("counters reconciled",
		zap.Int("targets", report.Targets),
		zap.Int("tags", report.Tags),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// Start schedules passes and returns immediately.
func (r *Reconciler) Start() error {
	err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); errors.Is(err, ErrAlreadyRunning) {
			r.logger.Warn("reconcile pass skipped", zap.String("reason", "previous pass still running"))
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reconciler scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the schedule. A pass already in progress runs to completion.
func (r *Reconciler) Stop() {
	r.cron.Stop()
}
