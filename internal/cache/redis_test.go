package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workdigest/internal/pipeline"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Hour, nil), mr
}

func TestRedisCache_StoreAndLookup(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Lookup(ctx, "k1")
	assert.False(t, ok)

	c.Store(ctx, "k1", "Low Priority: newsletter")
	out, ok := c.Lookup(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "Low Priority: newsletter", out)

	assert.True(t, mr.Exists("workdigest:k1"))
	assert.Equal(t, time.Hour, mr.TTL("workdigest:k1"))

	mr.FastForward(2 * time.Hour)
	_, ok = c.Lookup(ctx, "k1")
	assert.False(t, ok)
}

func TestRedisCache_ErrorsAreMisses(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	c.Store(ctx, "k1", "x")

	mr.Close()

	_, ok := c.Lookup(ctx, "k1")
	assert.False(t, ok)
	c.Store(ctx, "k2", "y")
}

func TestRedisCache_Runner(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	analyzer := pipeline.AnalyzerFunc(func(ctx context.Context, stage, text string, _ pipeline.Constraints) (string, error) {
		calls++
		return "A short summary.", nil
	})
	runner := pipeline.NewRunner(analyzer, pipeline.WithResultCache(c))
	stage := pipeline.SummaryStage("document", 100)
	content := pipeline.ExtractedContent{ItemID: "a", Text: "Some text."}

	for range 2 {
		res, err := runner.RunStage(context.Background(), stage, content)
		require.NoError(t, err)
		assert.Equal(t, "A short summary.", res.Output)
	}
	assert.Equal(t, 1, calls)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	c, err := Dial(context.Background(), addr, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())

	mr.Close()
	_, err = Dial(context.Background(), addr, 0, nil)
	assert.Error(t, err)
}
