package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBookLocks_Serialize(t *testing.T) {
	t.Parallel()
	var locks bookLocks
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(ctx, "b")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxInside)
	require.Zero(t, locks.held())
}

func TestBookLocks_IndependentBooks(t *testing.T) {
	t.Parallel()
	var locks bookLocks
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	releaseA, err := locks.acquire(ctx, "a")
	require.NoError(t, err)
	releaseB, err := locks.acquire(ctx, "b")
	require.NoError(t, err, "a different book must not wait")
	require.Equal(t, 2, locks.held())

	releaseA()
	releaseA()
	releaseB()
	require.Zero(t, locks.held())
}

func TestBookLocks_ContextCancel(t *testing.T) {
	t.Parallel()
	var locks bookLocks
	release, err := locks.acquire(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, locks.held())

	release()
	require.Zero(t, locks.held())
}
