package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("f"), 0))

	val, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestLoader_CachesResult(t *testing.T) {
	l := NewLoader(NewMemory())
	var loads atomic.Int32
	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		return []byte("pubmed"), nil
	}

	for i := 0; i < 3; i++ {
		val, err := l.GetOrLoad(context.Background(), "q", time.Hour, load)
		require.NoError(t, err)
		assert.Equal(t, []byte("pubmed"), val)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestLoader_CollapsesConcurrentMisses(t *testing.T) {
	l := NewLoader(NewMemory())
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.GetOrLoad(context.Background(), "same", time.Hour, load)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader(NewMemory())
	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("eutils 429")
		}
		return []byte("ok"), nil
	}

	_, err := l.GetOrLoad(context.Background(), "k", time.Hour, load)
	require.Error(t, err)
	val, err := l.GetOrLoad(context.Background(), "k", time.Hour, load)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), val)
}

func TestURLs(t *testing.T) {
	u := NewURLs(NewMemory())
	ctx := context.Background()
	_, ok := u.Get(ctx, "abc")
	assert.False(t, ok)

	u.Put(ctx, "abc", "https://host/x.png")
	got, ok := u.Get(ctx, "abc")
	assert.True(t, ok)
	assert.Equal(t, "https://host/x.png", got)
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", "studio:")
	assert.Error(t, err)
}
