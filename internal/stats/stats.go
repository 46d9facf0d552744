// internal/stats/stats.go
package stats

import (
	"sync/atomic"

	"github.com/colebrumley/cnrewrite/internal/rewrite"
)

// Counters tracks rewrite outcomes. The zero value is ready to use.
type Counters struct {
	rewritten      atomic.Int64
	truncated      atomic.Int64
	skippedNoRule  atomic.Int64
	skippedIllegal atomic.Int64
	unknownTokens  atomic.Int64
	warnings       atomic.Int64
	errors         atomic.Int64
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Rewritten      int64 `json:"rewritten"`
	Truncated      int64 `json:"truncated"`
	SkippedNoRule  int64 `json:"skipped_no_rule"`
	SkippedIllegal int64 `json:"skipped_illegal"`
	UnknownTokens  int64 `json:"unknown_tokens"`
	Warnings       int64 `json:"warnings"`
	Errors         int64 `json:"errors"`
}

// Record counts one rewrite result.
func (c *Counters) Record(res rewrite.Result) {
	switch res.Outcome {
	case rewrite.OutcomeRewritten:
		c.rewritten.Add(1)
	case rewrite.OutcomeNoRule:
		c.skippedNoRule.Add(1)
	case rewrite.OutcomeIllegalChars:
		c.skippedIllegal.Add(1)
	}
	if res.Truncated {
		c.truncated.Add(1)
	}
	c.unknownTokens.Add(int64(res.UnknownTokens))
	c.warnings.Add(int64(rewrite.Count(res.Diagnostics, rewrite.LevelWarning)))
	c.errors.Add(int64(rewrite.Count(res.Diagnostics, rewrite.LevelError)))
}

// Snapshot returns the current values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Rewritten:      c.rewritten.Load(),
		Truncated:      c.truncated.Load(),
		SkippedNoRule:  c.skippedNoRule.Load(),
		SkippedIllegal: c.skippedIllegal.Load(),
		UnknownTokens:  c.unknownTokens.Load(),
		Warnings:       c.warnings.Load(),
		Errors:         c.errors.Load(),
	}
}

// Total is the number of rewrites attempted.
func (s Snapshot) Total() int64 {
	return s.Rewritten + s.SkippedNoRule + s.SkippedIllegal
}
