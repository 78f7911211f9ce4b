package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "relay/pkg/errors"
	"relay/pkg/pipeline"
	"relay/pkg/routing"
)

func newLimitedPipeline(t *testing.T, rl *RateLimit) *pipeline.Pipeline {
	t.Helper()

	table := routing.NewTable(routing.NewChiMatcher())
	require.NoError(t, table.Register("GET", "/notes", func(ctx context.Context, payload interface{}) (interface{}, error) {
		return "ok", nil
	}, nil))

	p := pipeline.New(table, pipeline.NewChain(rl), zap.NewNop())
	p.Freeze()
	return p
}

func limitedRequest(ip string) *pipeline.Request {
	return &pipeline.Request{
		Method: "GET",
		Path:   "/notes",
		Meta:   map[string]interface{}{pipeline.MetaClientIP: ip},
	}
}

func TestRateLimit_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimit(2, time.Hour, nil)
	p := newLimitedPipeline(t, rl)

	res := p.Execute(context.Background(), limitedRequest("10.0.0.1"))
	require.False(t, res.Failed())

	res = p.Execute(context.Background(), limitedRequest("10.0.0.1"))
	require.False(t, res.Failed())

	res = p.Execute(context.Background(), limitedRequest("10.0.0.1"))
	require.True(t, res.Failed())
	assert.True(t, apperrors.IsRateLimit(res.Err))
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimit(1, time.Hour, nil)
	p := newLimitedPipeline(t, rl)

	require.False(t, p.Execute(context.Background(), limitedRequest("10.0.0.1")).Failed())
	require.True(t, p.Execute(context.Background(), limitedRequest("10.0.0.1")).Failed())

	// A different client has its own bucket.
	assert.False(t, p.Execute(context.Background(), limitedRequest("10.0.0.2")).Failed())
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	rl := NewRateLimit(1, time.Hour, func(rc *pipeline.RequestContext) string {
		return rc.GetString(pipeline.MetaUserID)
	})
	p := newLimitedPipeline(t, rl)

	req := &pipeline.Request{
		Method: "GET",
		Path:   "/notes",
		Meta:   map[string]interface{}{pipeline.MetaUserID: "user-1"},
	}

	require.False(t, p.Execute(context.Background(), req).Failed())
	assert.True(t, p.Execute(context.Background(), req).Failed())
}

func TestTokenBucketLimiter_RefillAndReset(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 10*time.Millisecond)

	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	// One token refills after the rate interval elapses.
	time.Sleep(25 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))

	// Reset restores the full burst.
	require.False(t, limiter.Allow("k"))
	limiter.Reset("k")
	assert.True(t, limiter.Allow("k"))
}
