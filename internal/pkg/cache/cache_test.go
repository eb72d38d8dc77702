package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comerge/internal/pkg/config"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// 降级实例: 读全部 miss、写全部 no-op，但回源路径必须照常工作。
func TestDisabledCacheDegradesToLoader(t *testing.T) {
	c := New(config.RedisConfig{Enabled: false})
	ctx := context.Background()

	var dest payload
	assert.False(t, c.Get(ctx, "k", &dest))

	c.Set(ctx, "k", payload{Name: "x"}, time.Minute)
	assert.False(t, c.Get(ctx, "k", &dest))

	loads := 0
	err := c.GetOrSet(ctx, "k", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		loads++
		return payload{Name: "loaded", Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Equal(t, payload{Name: "loaded", Count: 3}, dest)

	// 没有后端可写，每次都会回源
	err = c.GetOrSet(ctx, "k", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		loads++
		return payload{Name: "loaded again"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, loads)

	c.Delete(ctx, "k")
	c.DeleteByPrefix(ctx, "k")
	assert.NoError(t, c.Close())
}

func TestGetOrSetPropagatesLoaderError(t *testing.T) {
	c := New(config.RedisConfig{Enabled: false})

	var dest payload
	wantErr := assert.AnError
	err := c.GetOrSet(context.Background(), "k", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)
}

// 并发 miss 被 singleflight 合并，慢回源只执行一次。
func TestGetOrSetCollapsesConcurrentLoads(t *testing.T) {
	c := New(config.RedisConfig{Enabled: false})
	ctx := context.Background()

	var loads int32
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(50 * time.Millisecond)
		return payload{Name: "shared"}, nil
	}

	const callers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]payload, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = c.GetOrSet(ctx, "hot-key", &results[i], time.Minute, load)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i].Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}
