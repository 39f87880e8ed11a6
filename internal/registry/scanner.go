package registry

import (
	"context"
	"log/slog"
	"time"

	"hls-liveness/internal/platform/metrics"
)

// DefaultScanInterval is the time between reconciliation scans.
const DefaultScanInterval = 5 * time.Second

// Scanner runs Registry.Scan on a fixed interval until its context ends.
type Scanner struct {
	reg      *Registry
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewScanner returns a Scanner for reg. If interval <= 0, DefaultScanInterval
// is used. log and m may be nil.
func NewScanner(reg *Registry, interval time.Duration, log *slog.Logger, m *metrics.Metrics) *Scanner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		reg:      reg,
		interval: interval,
		log:      log.With("component", "scanner"),
		metrics:  m,
	}
}

// Run scans immediately and then once per interval. It returns nil as soon as
// ctx is cancelled, without waiting for the current interval to elapse. Scan
// failures are logged and retried on the next tick.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info("scanner started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.ScanOnce()

		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ScanOnce runs a single reconciliation cycle and records its outcome.
func (s *Scanner) ScanOnce() ScanResult {
	start := time.Now()
	res, err := s.reg.Scan()
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveScan(elapsed, err != nil)
		for _, t := range res.Transitions {
			s.metrics.IncTransition(t.Transition.String())
		}
	}

	if err != nil {
		s.log.Warn("playlist scan failed, retrying next interval", slog.String("error", err.Error()))
		return res
	}
	if res.Skipped {
		s.log.Debug("playlist directory missing, scan skipped")
		return res
	}

	s.log.Debug("playlist scan complete",
		slog.Int("artifacts", res.Artifacts),
		slog.Int("transitions", len(res.Transitions)),
		slog.Int("duration_ms", int(elapsed.Milliseconds())),
	)
	return res
}
