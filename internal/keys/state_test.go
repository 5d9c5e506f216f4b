package keys

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_NotReadyUntilSet(t *testing.T) {
	var s State
	_, ok := s.Get()
	assert.False(t, ok)
	assert.False(t, s.Ready())

	m, err := Generate("k")
	require.NoError(t, err)
	s.Set(m)

	got, ok := s.Get()
	assert.True(t, ok)
	assert.True(t, s.Ready())
	assert.Same(t, m, got)
}

func TestState_ConcurrentReaders(t *testing.T) {
	var s State
	m, err := Generate("k")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got, ok := s.Get(); ok {
					assert.Equal(t, "k", got.KID)
				}
			}
		}()
	}
	s.Set(m)
	wg.Wait()
	assert.True(t, s.Ready())
}
