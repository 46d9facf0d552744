// internal/stats/stats_test.go
package stats

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCountersRecord(t *testing.T) {
	var c Counters

	c.Record(rewrite.Apply("$U-$Z", customization.Context{UserIdentityName: "alice"}))
	c.Record(rewrite.Apply("abcdefghijklmnopqrstuvwxyz", customization.Context{}))
	c.Record(rewrite.Apply("", customization.Context{}))
	c.Record(rewrite.Apply("a/b", customization.Context{}))
	c.Record(rewrite.Apply("$D", customization.Context{}))

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.Rewritten)
	assert.Equal(t, int64(1), s.Truncated)
	assert.Equal(t, int64(1), s.SkippedNoRule)
	assert.Equal(t, int64(1), s.SkippedIllegal)
	assert.Equal(t, int64(1), s.UnknownTokens)
	assert.Equal(t, int64(2), s.Warnings, "unknown token and missing principal")
	assert.Equal(t, int64(2), s.Errors)
	assert.Equal(t, int64(5), s.Total())
}

func TestCountersConcurrent(t *testing.T) {
	var c Counters
	res := rewrite.Apply("$U", customization.Context{UserIdentityName: "x"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(res)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().Rewritten)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporterRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	var c Counters
	c.Record(rewrite.Apply("$U", customization.Context{UserIdentityName: "x"}))

	r, err := NewReporter("* * * * * *", &c, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "client name rewrite stats") >= 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop")
	}

	assert.Contains(t, out.String(), "rewritten=1")
}

func TestNewReporterInvalidSchedule(t *testing.T) {
	_, err := NewReporter("every tuesday", &Counters{}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report schedule")
}
