package memory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tessera-db/tessera/pkg/errors"
	"github.com/tessera-db/tessera/pkg/metrics"
)

// DefaultPollInterval is the fallback re-check interval for trackers that
// cannot signal releases.
const DefaultPollInterval = 10 * time.Millisecond

// Gate blocks a caller until a prospective allocation fits under the
// tracker's hard limit. Admission is advisory: the gate only holds back the
// caller's own growth and does not coordinate between competing callers, so
// unfairness across stages is possible and accepted.
type Gate struct {
	tracker      Tracker
	pollInterval time.Duration
	logger       *zap.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithPollInterval overrides the fallback polling interval.
func WithPollInterval(d time.Duration) GateOption {
	return func(g *Gate) { g.pollInterval = d }
}

// WithLogger sets the gate's logger.
func WithLogger(logger *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// NewGate creates an admission gate over the given tracker.
func NewGate(tracker Tracker, opts ...GateOption) *Gate {
	g := &Gate{
		tracker:      tracker,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit blocks until hardLimit == 0 (unbounded) or
// hardLimit - used > requested. The caller's context is checked on every
// wake, so a stalled admission fails with a resource error instead of
// spinning forever when the query is cancelled.
func (g *Gate) Admit(ctx context.Context, requested int64) error {
	limit := g.tracker.HardLimit()
	if limit == 0 {
		return nil
	}
	if limit-g.tracker.Used() > requested {
		return nil
	}

	metrics.AdmissionStalls.Inc()
	timer := time.Now()
	g.logger.Warn("memory admission blocked",
		zap.Int64("requested_bytes", requested),
		zap.Int64("used_bytes", g.tracker.Used()),
		zap.Int64("hard_limit_bytes", limit))

	defer func() {
		metrics.AdmissionWaitSeconds.Observe(time.Since(timer).Seconds())
	}()

	for {
		if err := g.wait(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeResource, "memory admission cancelled").
				WithDetail("requested_bytes", requested).
				WithDetail("used_bytes", g.tracker.Used()).
				WithDetail("hard_limit_bytes", limit)
		}
		if limit-g.tracker.Used() > requested {
			g.logger.Debug("memory admission unblocked",
				zap.Int64("requested_bytes", requested),
				zap.Duration("waited", time.Since(timer)))
			return nil
		}
	}
}

// wait suspends until the tracker signals a release, or one poll interval
// passes for trackers that cannot signal.
func (g *Gate) wait(ctx context.Context) error {
	if w, ok := g.tracker.(releaseWaiter); ok {
		return w.AwaitRelease(ctx)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.pollInterval):
		return nil
	}
}
