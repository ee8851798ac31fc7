package uid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	require.True(t, IsValid(a))
	require.NotEqual(t, a, b)
	require.False(t, IsValid("not-a-uuid"))
}

func TestNewOrdered(t *testing.T) {
	prev := NewOrdered()
	require.True(t, IsValid(prev))
	for i := 0; i < 10; i++ {
		next := NewOrdered()
		require.Greater(t, next, prev)
		prev = next
	}
}
