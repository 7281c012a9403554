// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package concurrent

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

func TestWorkerPool_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs all functions", func(t *testing.T) {
		pool := NewWorkerPool(3)
		var count atomic.Int32

		fns := make([]func() error, 10)
		for i := range fns {
			fns[i] = func() error {
				count.Add(1)
				return nil
			}
		}

		err := pool.Run(ctx, fns...)
		require.NoError(t, err)
		assert.Equal(t, int32(10), count.Load())
	})

	t.Run("returns first error", func(t *testing.T) {
		pool := NewWorkerPool(1)
		boom := errors.New("boom")

		err := pool.Run(ctx,
			func() error { return nil },
			func() error { return boom },
		)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty input", func(t *testing.T) {
		pool := NewWorkerPool(2)
		assert.NoError(t, pool.Run(ctx))
	})

	t.Run("zero worker count defaults to one", func(t *testing.T) {
		pool := NewWorkerPool(0)
		assert.NoError(t, pool.Run(ctx, func() error { return nil }))
	})
}

func TestWorkerPool_RunAll(t *testing.T) {
	ctx := context.Background()

	t.Run("collects all errors without cancelling", func(t *testing.T) {
		pool := NewWorkerPool(2)
		var count atomic.Int32

		errs := pool.RunAll(ctx,
			func() error { count.Add(1); return errors.New("first") },
			func() error { count.Add(1); return nil },
			func() error { count.Add(1); return errors.New("second") },
		)

		assert.Equal(t, int32(3), count.Load())
		assert.Len(t, errs, 2)
	})

	t.Run("nil for no errors", func(t *testing.T) {
		pool := NewWorkerPool(2)
		errs := pool.RunAll(ctx, func() error { return nil })
		assert.Nil(t, errs)
	})
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var active, maxActive int32
	var wg sync.WaitGroup

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("acct-1")
			defer km.Unlock("acct-1")

			cur := atomic.AddInt32(&active, 1)
			if cur > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, cur)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestKeyedMutex_TryLock(t *testing.T) {
	km := NewKeyedMutex()

	require.True(t, km.TryLock("m"))
	assert.False(t, km.TryLock("m"), "second holder must lose")
	assert.True(t, km.TryLock("other"), "distinct keys stay independent")

	km.Unlock("m")
	assert.True(t, km.TryLock("m"), "lock is reusable after release")
	km.Unlock("m")
	km.Unlock("other")
}
