package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vessel-proximity/internal/fetcher"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/internal/processor"
	"vessel-proximity/internal/report"
	"vessel-proximity/pkg/logger"
)

// ErrInvalidParams marks configuration errors detected before any network activity
var ErrInvalidParams = errors.New("invalid parameters")

// Params are the per-run inputs of the proximity check
type Params struct {
	Reference           model.ReferencePoint
	RadiusNM            float64
	Duration            time.Duration
	PresenceWindowHours int
}

// Validate checks the parameters before anything is dialed
func (p Params) Validate() error {
	if err := p.Reference.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if math.IsNaN(p.RadiusNM) || math.IsInf(p.RadiusNM, 0) || p.RadiusNM <= 0 {
		return fmt.Errorf("%w: radius must be a positive number of nautical miles", ErrInvalidParams)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("%w: collection duration must be positive", ErrInvalidParams)
	}
	if p.PresenceWindowHours < 0 {
		return fmt.Errorf("%w: presence window must not be negative", ErrInvalidParams)
	}
	return nil
}

// PresenceLookup queries a secondary source for recent vessel presence.
// Implementations report failures in the summary status.
type PresenceLookup interface {
	Query(ctx context.Context, ref model.ReferencePoint, radiusNM float64, windowHours int) model.PresenceSummary
}

// LiveOptions configures the live feed connection
type LiveOptions struct {
	APIKey         string
	MaxReconnects  int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Tracker runs the live collection and the presence lookup side by side
// and merges them into a report
type Tracker struct {
	dialer   fetcher.StreamDialer
	presence PresenceLookup
	opts     LiveOptions
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	collector *processor.Collector
}

// New creates a tracker. presence may be nil, which reports a skipped lookup.
func New(dialer fetcher.StreamDialer, presence PresenceLookup, opts LiveOptions, log *logger.Logger, m *metrics.Metrics) *Tracker {
	return &Tracker{
		dialer:   dialer,
		presence: presence,
		opts:     opts,
		logger:   log,
		metrics:  m,
	}
}

// Status returns the state of the current collector and the vessels tracked so far
func (t *Tracker) Status() (model.CollectorState, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.collector == nil {
		return model.StateIdle, 0
	}
	return t.collector.State(), t.collector.Tracked()
}

// Run performs one proximity check. It fails only on invalid parameters or
// when the live feed rejects the credential.
func (t *Tracker) Run(ctx context.Context, p Params) (*model.ProximityReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if t.opts.APIKey == "" {
		return nil, fmt.Errorf("%w: live feed API key is required", ErrInvalidParams)
	}

	log := t.logger.With("run", uuid.NewString())

	collector := processor.NewCollector(processor.CollectorConfig{
		Reference:      p.Reference,
		RadiusNM:       p.RadiusNM,
		Duration:       p.Duration,
		APIKey:         t.opts.APIKey,
		MaxReconnects:  t.opts.MaxReconnects,
		InitialBackoff: t.opts.InitialBackoff,
		MaxBackoff:     t.opts.MaxBackoff,
	}, t.dialer, log.Named("collector"), t.metrics)

	t.mu.Lock()
	t.collector = collector
	t.mu.Unlock()

	var live *processor.CollectResult
	presence := model.PresenceSummary{Status: model.PresenceSkipped, WindowHours: p.PresenceWindowHours}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := collector.Run(gctx)
		live = res
		return err
	})
	if t.presence != nil {
		g.Go(func() error {
			presence = t.presence.Query(gctx, p.Reference, p.RadiusNM, p.PresenceWindowHours)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("live feed: %w", err)
	}

	log.Info("Run finished: %d vessels within %.1f NM, presence %s", len(live.Records), p.RadiusNM, presence.Status)

	return report.Build(p.Reference, p.RadiusNM, p.Duration, live.Records, presence, report.LiveOutcome{
		State: live.State,
		Err:   live.Err,
		Stats: live.Stats,
	}), nil
}
