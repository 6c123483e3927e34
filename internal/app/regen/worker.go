// Package regen drains the durable regeneration queue: it claims due tasks,
// calls the compositor and records the outcome on the task and the image.
package regen

import (
	"context"
	"time"

	"artmarket/internal/domain/derivatives"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]derivatives.Task, error)
	Complete(ctx context.Context, task derivatives.Task, res derivatives.Result) error
	Retry(ctx context.Context, task derivatives.Task, reason string, at time.Time) error
	Fail(ctx context.Context, task derivatives.Task, reason string) error
	RequeueStale(ctx context.Context, before time.Time) (int, error)
	QueueDepth(ctx context.Context) (int64, error)
}

type Compositor interface {
	Regenerate(ctx context.Context, artworkID string, req derivatives.Request) (derivatives.Result, error)
}

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// StaleAfter returns running tasks to the queue when a worker died mid-call.
	StaleAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 5 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Minute
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	return c
}

type metrics struct {
	tasks *prometheus.CounterVec
	queue prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artmarket",
			Subsystem: "regeneration",
			Name:      "tasks_total",
			Help:      "Regeneration tasks processed, by result.",
		}, []string{"result"}),
		queue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "artmarket",
			Subsystem: "regeneration",
			Name:      "queue_depth",
			Help:      "Pending regeneration tasks.",
		}),
	}
}

type Worker struct {
	store      Store
	compositor Compositor
	cfg        Config
	metrics    *metrics
	now        func() time.Time
}

// NewWorker builds a worker. reg may be nil, in which case metrics are kept
// but not registered.
func NewWorker(store Store, compositor Compositor, cfg Config, reg prometheus.Registerer) *Worker {
	return &Worker{
		store:      store,
		compositor: compositor,
		cfg:        cfg.withDefaults(),
		metrics:    newMetrics(reg),
		now:        time.Now,
	}
}

// Run polls until ctx is cancelled. It returns nil on shutdown.
func (w *Worker) Run(ctx context.Context) error {
	log.WithField("interval", w.cfg.PollInterval).Info("regeneration worker started")
	defer log.Info("regeneration worker stopped")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("regeneration poll")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one poll: stale tasks are requeued, then up to BatchSize due
// tasks are processed. It returns how many tasks were claimed.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	now := w.now()

	if n, err := w.store.RequeueStale(ctx, now.Add(-w.cfg.StaleAfter)); err != nil {
		return 0, err
	} else if n > 0 {
		log.WithField("count", n).Warn("requeued stale regeneration tasks")
	}

	tasks, err := w.store.ClaimDue(ctx, now, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			return w.process(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return len(tasks), err
	}

	depth, err := w.store.QueueDepth(ctx)
	if err != nil {
		return len(tasks), err
	}
	w.metrics.queue.Set(float64(depth))
	return len(tasks), nil
}

// process only returns store errors; compositor failures are recorded on the task.
func (w *Worker) process(ctx context.Context, t derivatives.Task) error {
	fields := log.Fields{
		"task_id":       t.ID,
		"artwork_id":    t.ArtworkID,
		"attempt":       t.Attempts,
		"watermark":     t.Watermark,
		"visualization": t.Visualization,
	}

	res, err := w.compositor.Regenerate(ctx, t.ArtworkID, t.Request())
	if err == nil && !res.Covers(t.Request()) {
		err = errors.New("compositor response is missing a requested path")
	}
	if err == nil {
		if err := w.store.Complete(ctx, t, res); err != nil {
			return errors.Wrapf(err, "complete task %s", t.ID)
		}
		w.metrics.tasks.WithLabelValues("done").Inc()
		log.WithFields(fields).Info("derivatives regenerated")
		return nil
	}

	// a shutdown mid-call is not the compositor's fault
	if ctx.Err() != nil {
		return w.store.Retry(context.WithoutCancel(ctx), t, "interrupted by shutdown", w.now())
	}

	if t.Exhausted() {
		if err := w.store.Fail(ctx, t, err.Error()); err != nil {
			return errors.Wrapf(err, "fail task %s", t.ID)
		}
		w.metrics.tasks.WithLabelValues("failed").Inc()
		log.WithFields(fields).WithError(err).Error("regeneration failed permanently")
		return nil
	}

	next := w.now().Add(derivatives.Backoff(w.cfg.BackoffInitial, w.cfg.BackoffMax, t.Attempts))
	if err := w.store.Retry(ctx, t, err.Error(), next); err != nil {
		return errors.Wrapf(err, "retry task %s", t.ID)
	}
	w.metrics.tasks.WithLabelValues("retried").Inc()
	log.WithFields(fields).WithError(err).WithField("next_attempt_at", next).Warn("regeneration failed, will retry")
	return nil
}
