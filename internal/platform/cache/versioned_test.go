package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int `json:"count"`
}

func newVersioned(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test", time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c, _ := newVersioned(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: calls}, nil
	}

	key, err := c.BuildKey(ctx, "stats", "all")
	require.NoError(t, err)
	assert.Equal(t, "test:stats:all:1", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, got.Count)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "stats", "all")
	require.NoError(t, err)
	assert.Equal(t, "test:stats:all:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, got.Count)
}

func TestFetchJSONExpiresWithTTL(t *testing.T) {
	c, mr := newVersioned(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: calls}, nil
	}
	var got payload
	require.NoError(t, c.FetchJSON(ctx, "k", &got, loader))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, c.FetchJSON(ctx, "k", &got, loader))
	assert.Equal(t, 2, calls)
}

func TestFetchJSONCollapsesConcurrentMisses(t *testing.T) {
	c := NewVersioned(nil, "test", time.Minute)
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return payload{Count: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]payload, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.FetchJSON(context.Background(), "same", &results[i], loader)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	for _, r := range results {
		assert.Equal(t, 7, r.Count)
	}
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, _ := newVersioned(t)
	var got payload
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return nil, errors.New("query failed")
	})
	require.EqualError(t, err, "query failed")
	require.Error(t, c.FetchJSON(context.Background(), "k", &got, nil))
}
