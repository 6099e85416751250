package idpool_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pubsubmux/pkg/idpool"
)

func TestPool_Draw(t *testing.T) {
	t.Parallel()

	t.Run("sequential ids from zero", func(t *testing.T) {
		t.Parallel()

		pool := idpool.New()
		for want := idpool.ID(0); want < 5; want++ {
			id, err := pool.Draw()
			require.NoError(t, err)
			assert.Equal(t, want, id)
		}
		assert.Equal(t, 5, pool.Len())
	})

	t.Run("surrendered id is not reused before wraparound", func(t *testing.T) {
		t.Parallel()

		pool := idpool.NewWithLimit(10)
		first, err := pool.Draw()
		require.NoError(t, err)
		require.True(t, pool.Surrender(first))

		next, err := pool.Draw()
		require.NoError(t, err)
		assert.NotEqual(t, first, next)
	})

	t.Run("wraparound skips held ids", func(t *testing.T) {
		t.Parallel()

		pool := idpool.NewWithLimit(3)
		a, _ := pool.Draw() // 0
		b, _ := pool.Draw() // 1
		c, _ := pool.Draw() // 2
		require.Equal(t, []idpool.ID{0, 1, 2}, []idpool.ID{a, b, c})

		require.True(t, pool.Surrender(b))

		id, err := pool.Draw()
		require.NoError(t, err)
		assert.Equal(t, b, id, "only free id after wraparound")
	})

	t.Run("exhausted pool fails explicitly", func(t *testing.T) {
		t.Parallel()

		pool := idpool.NewWithLimit(2)
		_, err := pool.Draw()
		require.NoError(t, err)
		_, err = pool.Draw()
		require.NoError(t, err)

		_, err = pool.Draw()
		assert.ErrorIs(t, err, idpool.ErrExhausted)
		assert.Equal(t, 2, pool.Len())
	})

	t.Run("exhausted pool recovers after surrender", func(t *testing.T) {
		t.Parallel()

		pool := idpool.NewWithLimit(1)
		id, err := pool.Draw()
		require.NoError(t, err)

		_, err = pool.Draw()
		require.ErrorIs(t, err, idpool.ErrExhausted)

		require.True(t, pool.Surrender(id))
		again, err := pool.Draw()
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		t.Parallel()

		pool := idpool.NewWithLimit(0)
		id, err := pool.Draw()
		require.NoError(t, err)
		assert.Equal(t, idpool.ID(0), id)
	})
}

func TestPool_Surrender(t *testing.T) {
	t.Parallel()

	pool := idpool.New()
	id, err := pool.Draw()
	require.NoError(t, err)
	assert.True(t, pool.Held(id))

	assert.True(t, pool.Surrender(id))
	assert.False(t, pool.Held(id))
	assert.False(t, pool.Surrender(id), "second surrender reports not held")
	assert.False(t, pool.Surrender(42), "never drawn")
	assert.Equal(t, 0, pool.Len())
}

func TestPool_Concurrent(t *testing.T) {
	t.Parallel()

	const (
		workers = 16
		perWork = 200
	)

	pool := idpool.New()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[idpool.ID]struct{}, workers*perWork)
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWork {
				id, err := pool.Draw()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, "id %d handed out twice", id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWork, pool.Len())
}

func TestPool_ConcurrentChurn(t *testing.T) {
	t.Parallel()

	pool := idpool.NewWithLimit(64)
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				id, err := pool.Draw()
				if err != nil {
					assert.ErrorIs(t, err, idpool.ErrExhausted)
					continue
				}
				assert.True(t, pool.Surrender(id))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, pool.Len())
}
