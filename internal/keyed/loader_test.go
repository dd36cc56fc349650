package keyed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_SameKeyTwiceCallsOnce(t *testing.T) {
	var l Loader[[]string]
	ctx := context.Background()

	fetch := func(context.Context) ([]string, error) { return []string{"09:00"}, nil }

	first, err := l.Load(ctx, "1|2026-03-10|3", fetch)
	require.NoError(t, err)
	second, err := l.Load(ctx, "1|2026-03-10|3", fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, l.Calls())
}

func TestLoader_NewKeyRefetches(t *testing.T) {
	var l Loader[int]
	ctx := context.Background()
	n := 0
	fetch := func(context.Context) (int, error) { n++; return n, nil }

	_, _ = l.Load(ctx, "a", fetch)
	v, err := l.Load(ctx, "b", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = l.Load(ctx, "a", fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, v, "only the last key is memoized")
}

func TestLoader_ConcurrentSameKeyShareOneCall(t *testing.T) {
	var l Loader[int]
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = l.Load(context.Background(), "k", fetch)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{42, 42, 42}, results)
	assert.Equal(t, 1, l.Calls())
}

func TestLoader_SupersededLoadIsCanceledAndDiscarded(t *testing.T) {
	var l Loader[string]
	var superseded []string
	l.OnSuperseded(func(key string) { superseded = append(superseded, key) })

	started := make(chan struct{})
	slowErr := make(chan error, 1)

	go func() {
		_, err := l.Load(context.Background(), "old", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "stale", ctx.Err()
		})
		slowErr <- err
	}()

	<-started
	v, err := l.Load(context.Background(), "new", func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	assert.True(t, errors.Is(<-slowErr, ErrSuperseded))
	assert.Equal(t, []string{"old"}, superseded)

	got, ok := l.Peek("new")
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestLoader_ErrorIsNotMemoized(t *testing.T) {
	var l Loader[int]
	boom := errors.New("boom")

	_, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, l.Calls())
}

func TestLoader_Reset(t *testing.T) {
	var l Loader[int]
	fetch := func(context.Context) (int, error) { return 1, nil }

	_, _ = l.Load(context.Background(), "k", fetch)
	l.Reset()
	_, _ = l.Load(context.Background(), "k", fetch)

	assert.Equal(t, 2, l.Calls())
}

func TestLoader_FailureReleasesContextAndRetries(t *testing.T) {
	var l Loader[int]
	var seen context.Context
	boom := errors.New("boom")

	_, err := l.Load(context.Background(), "k", func(ctx context.Context) (int, error) {
		seen = ctx
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	require.NotNil(t, seen)
	assert.ErrorIs(t, seen.Err(), context.Canceled)

	v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, l.Calls())
}

func TestLoader_AbandonedLoadIsStillMemoized(t *testing.T) {
	var l Loader[int]
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(finished)
		_, err := l.Load(ctx, "k", func(context.Context) (int, error) {
			<-release
			return 42, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	}()

	assert.Eventually(t, func() bool { return l.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-finished
	close(release)

	assert.Eventually(t, func() bool {
		_, ok := l.Peek("k")
		return ok
	}, time.Second, time.Millisecond)

	v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 0, errors.New("not called") })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, l.Calls())
}
