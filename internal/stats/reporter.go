// internal/stats/reporter.go
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Reporter logs a counter snapshot on a cron schedule
type Reporter struct {
	counters *Counters
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewReporter creates a reporter. The schedule uses the six-field cron
// syntax with seconds, or a descriptor such as "@every 1m".
func NewReporter(schedule string, counters *Counters, logger *slog.Logger) (*Reporter, error) {
	c := cron.New(cron.WithSeconds())

	r := &Reporter{
		counters: counters,
		logger:   logger,
		cron:     c,
	}

	if _, err := c.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("parsing report schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Report logs the current snapshot.
func (r *Reporter) Report() {
	s := r.counters.Snapshot()
	r.logger.Info("client name rewrite stats",
		"total", s.Total(),
		"rewritten", s.Rewritten,
		"truncated", s.Truncated,
		"skipped_no_rule", s.SkippedNoRule,
		"skipped_illegal", s.SkippedIllegal,
		"unknown_tokens", s.UnknownTokens,
		"warnings", s.Warnings,
		"errors", s.Errors,
	)
}

// Run starts the schedule and blocks until ctx is done. A final report is
// logged on the way out.
func (r *Reporter) Run(ctx context.Context) error {
	r.cron.Start()

	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.Report()
	return nil
}
