package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"vessel-proximity/internal/aggregator"
	"vessel-proximity/internal/fetcher"
	"vessel-proximity/internal/geo"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
)

const (
	eventConnect   = "connect"
	eventSubscribe = "subscribe"
	eventCollect   = "collect"
	eventReconnect = "reconnect"
	eventClose     = "close"
	eventFail      = "fail"
)

// CollectorConfig holds the parameters of one live collection window
type CollectorConfig struct {
	Reference      model.ReferencePoint
	RadiusNM       float64
	Duration       time.Duration
	APIKey         string
	MaxReconnects  int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// CollectResult is what a collection window produced. Records are valid
// even when State is failed.
type CollectResult struct {
	Records  []model.VesselRecord
	State    model.CollectorState
	Err      error
	Stats    model.CollectorStats
	Started  time.Time
	Finished time.Time
}

// Collector drives a single subscription to a streaming source for a
// bounded duration and aggregates the positions within the radius.
// The goroutine calling Run is the only writer of the aggregator.
type Collector struct {
	cfg     CollectorConfig
	dialer  fetcher.StreamDialer
	agg     *aggregator.Aggregator
	fsm     *fsm.FSM
	logger  *logger.Logger
	metrics *metrics.Metrics
	stats   model.CollectorStats
}

// NewCollector creates a collector in the idle state
func NewCollector(cfg CollectorConfig, dialer fetcher.StreamDialer, log *logger.Logger, m *metrics.Metrics) *Collector {
	c := &Collector{
		cfg:     cfg,
		dialer:  dialer,
		agg:     aggregator.New(cfg.Reference),
		logger:  log,
		metrics: m,
	}

	active := []string{string(model.StateConnecting), string(model.StateSubscribed), string(model.StateCollecting)}
	c.fsm = fsm.NewFSM(
		string(model.StateIdle),
		fsm.Events{
			{Name: eventConnect, Src: []string{string(model.StateIdle)}, Dst: string(model.StateConnecting)},
			{Name: eventSubscribe, Src: []string{string(model.StateConnecting)}, Dst: string(model.StateSubscribed)},
			{Name: eventCollect, Src: []string{string(model.StateSubscribed)}, Dst: string(model.StateCollecting)},
			{Name: eventReconnect, Src: []string{string(model.StateSubscribed), string(model.StateCollecting)}, Dst: string(model.StateConnecting)},
			{Name: eventClose, Src: active, Dst: string(model.StateClosed)},
			{Name: eventFail, Src: active, Dst: string(model.StateFailed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debug("Collector %s -> %s (%s)", e.Src, e.Dst, e.Event)
				if c.metrics != nil {
					c.metrics.SetCollectorState(e.Dst)
				}
			},
		},
	)

	return c
}

// State returns the current collector state
func (c *Collector) State() model.CollectorState {
	return model.CollectorState(c.fsm.Current())
}

// Tracked returns the number of distinct vessels aggregated so far
func (c *Collector) Tracked() int {
	return c.agg.Len()
}

// transition fires an event. Transitions must happen even after the run
// context is cancelled, so the caller passes a context without cancellation.
func (c *Collector) transition(ctx context.Context, event string) {
	if err := c.fsm.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return
		}
		c.logger.Error("Collector transition %s from %s failed: %v", event, c.fsm.Current(), err)
	}
}

// Run collects until the configured duration elapses or ctx is cancelled.
// Only an authentication rejection is returned as an error; exhausting
// reconnects ends in the failed state with the partial records kept.
func (c *Collector) Run(ctx context.Context) (*CollectResult, error) {
	if c.State() != model.StateIdle {
		return nil, fmt.Errorf("collector already ran (state %s)", c.State())
	}

	result := &CollectResult{Started: time.Now()}
	fsmCtx := context.WithoutCancel(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Duration)
	defer cancel()

	sub := fetcher.NewSubscription(c.cfg.APIKey, []model.BoundingBox{geo.Bounds(c.cfg.Reference, c.cfg.RadiusNM)})
	backoff := NewBackoff(c.cfg.InitialBackoff, c.cfg.MaxBackoff)
	attempts := 0

	c.logger.Info("Collecting positions within %.1f NM of %.5f, %.5f for %v",
		c.cfg.RadiusNM, c.cfg.Reference.Latitude, c.cfg.Reference.Longitude, c.cfg.Duration)
	c.transition(fsmCtx, eventConnect)

	var runErr error
	for {
		received := c.stats.Received
		err := c.session(ctx, fsmCtx, sub)
		if err == nil || ctx.Err() != nil {
			c.transition(fsmCtx, eventClose)
			break
		}

		if errors.Is(err, fetcher.ErrAuthRejected) {
			c.logger.Error("Live feed rejected the API key: %v", err)
			result.Err = err
			runErr = err
			c.transition(fsmCtx, eventFail)
			break
		}

		if attempts >= c.cfg.MaxReconnects {
			c.logger.Error("Giving up after %d reconnect attempts: %v", attempts, err)
			result.Err = err
			c.transition(fsmCtx, eventFail)
			break
		}

		if c.stats.Received > received {
			backoff.Reset()
		}

		attempts++
		c.stats.Reconnects++
		if c.metrics != nil {
			c.metrics.IncrementReconnects()
		}
		c.logger.Warn("Live feed error, reconnecting (attempt %d/%d) in %v: %v",
			attempts, c.cfg.MaxReconnects, backoff.Current(), err)
		if c.fsm.Can(eventReconnect) {
			c.transition(fsmCtx, eventReconnect)
		}

		if err := backoff.Wait(ctx); err != nil {
			// the window ends before the next attempt would start
			c.transition(fsmCtx, eventClose)
			break
		}
	}

	result.Records = c.agg.Snapshot()
	result.State = c.State()
	result.Stats = c.stats
	result.Finished = time.Now()

	c.logger.Info("Collection %s: %d vessels in range, %d messages received, %d dropped",
		result.State, len(result.Records), c.stats.Received, c.stats.Malformed+c.stats.NonPosition)
	return result, runErr
}

// session connects once and reads until the stream fails or ctx is done.
// It returns nil when ctx ended the session.
func (c *Collector) session(ctx, fsmCtx context.Context, sub model.Subscription) error {
	stream, err := c.dialer.Dial(ctx, sub)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect: %w", err)
	}

	// closing the stream unblocks Receive on deadline or cancellation
	stop := context.AfterFunc(ctx, func() {
		stream.Close()
	})
	defer func() {
		if stop() {
			stream.Close()
		}
	}()

	c.transition(fsmCtx, eventSubscribe)
	c.transition(fsmCtx, eventCollect)

	for {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := stream.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if err := c.handle(raw); err != nil {
			return err
		}
	}
}

// handle processes one inbound frame
func (c *Collector) handle(raw []byte) error {
	c.stats.Received++
	res := fetcher.Normalize(raw)

	switch res.Outcome {
	case fetcher.OutcomeServerError:
		c.count(metrics.OutcomeServerError)
		if fetcher.IsAuthError(res.Reason) {
			return fmt.Errorf("%w: %s", fetcher.ErrAuthRejected, res.Reason)
		}
		return fmt.Errorf("stream reported: %s", res.Reason)

	case fetcher.OutcomeNotPosition:
		c.stats.NonPosition++
		c.count(metrics.OutcomeNonPosition)

	case fetcher.OutcomeMalformed:
		c.stats.Malformed++
		c.count(metrics.OutcomeMalformed)
		c.logger.Debug("Dropping malformed message: %s", res.Reason)

	case fetcher.OutcomePosition:
		if !geo.Include(c.cfg.Reference, c.cfg.RadiusNM, res.Position) {
			c.stats.OutOfRange++
			c.count(metrics.OutcomeOutOfRange)
			return nil
		}
		c.stats.Accepted++
		c.count(metrics.OutcomeAccepted)
		c.agg.Upsert(res.Position)
		if c.metrics != nil {
			c.metrics.SetTrackedVessels(c.agg.Len())
		}
	}
	return nil
}

func (c *Collector) count(outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementMessages(outcome)
	}
}
