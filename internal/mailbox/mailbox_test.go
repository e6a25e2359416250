package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushTryPopFIFOOrder(t *testing.T) {
	m := New[int](4)
	m.Push(1)
	m.Push(2)
	m.Push(3)

	v, ok := m.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = m.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTryPopEmptyReturnsFalse(t *testing.T) {
	m := New[string](2)
	_, ok := m.TryPop()
	assert.False(t, ok)
}

func TestPushDropsOldestWhenFull(t *testing.T) {
	m := New[int](2)
	m.Push(1)
	m.Push(2)
	m.Push(3) // 1 is dropped

	v, ok := m.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, m.Len())
}

func TestNewWithNonPositiveCapacityUsesDefault(t *testing.T) {
	m := New[int](0)
	for i := 0; i < DefaultCapacity; i++ {
		m.Push(i)
	}
	assert.Equal(t, DefaultCapacity, m.Len())
}
