package keyedmutex_test

import (
	"sync"
	"testing"

	"ordersync/internal/pkg/keyedmutex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := keyedmutex.New()

	var counter int
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("order-1")
			counter++
			km.Unlock("order-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := keyedmutex.New()

	km.Lock("order-1")

	// A different key must not block even while order-1 is held.
	done := make(chan struct{})
	go func() {
		km.Lock("order-2")
		km.Unlock("order-2")
		close(done)
	}()
	<-done

	km.Unlock("order-1")
}

func TestKeyedMutex_Retire(t *testing.T) {
	km := keyedmutex.New()

	t.Run("retire_removes_idle_entry", func(t *testing.T) {
		km.Lock("order-1")
		km.Unlock("order-1")
		require.Equal(t, 1, km.Len())

		km.Retire("order-1")
		assert.Equal(t, 0, km.Len())
	})

	t.Run("retire_keeps_held_entry", func(t *testing.T) {
		km.Lock("order-2")
		km.Retire("order-2")
		assert.Equal(t, 1, km.Len())

		km.Unlock("order-2")
		km.Retire("order-2")
		assert.Equal(t, 0, km.Len())
	})

	t.Run("lock_after_retire_recreates_entry", func(t *testing.T) {
		km.Retire("order-3")
		km.Lock("order-3")
		km.Unlock("order-3")
		assert.Equal(t, 1, km.Len())
	})
}

func TestKeyedMutex_UnlockUnknownKeyPanics(t *testing.T) {
	km := keyedmutex.New()

	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
