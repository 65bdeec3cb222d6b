package random

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceDeterministic(t *testing.T) {
	a, b := New(7), New(7)
	assert.Equal(t, a.Perm(20), b.Perm(20))
	assert.Equal(t, a.Seeds(5), b.Seeds(5))
	assert.NotEqual(t, New(7).Perm(20), New(8).Perm(20))
}

func TestSample(t *testing.T) {
	s := New(1)
	got := s.Sample(100, 30)
	require.Len(t, got, 30)
	assert.True(t, sort.IntsAreSorted(got))

	seen := map[int]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate index %d", v)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 100)
		seen[v] = true
	}

	full := s.Sample(10, 10)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, full)
	assert.Len(t, s.Sample(5, 50), 5)
	assert.Empty(t, s.Sample(5, 0))
}

func TestMarshalRoundTrip(t *testing.T) {
	s := New(99)
	s.Uint64()
	state, err := s.MarshalBinary()
	require.NoError(t, err)

	restored := &Source{}
	require.NoError(t, restored.UnmarshalBinary(state))
	assert.Equal(t, s.Seeds(4), restored.Seeds(4))
}
