package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/container"
)

func TestQueueInit(t *testing.T) {
	q := container.NewQueue[int](0)
	assert.Equal(t, 0, q.Len())
	_, ok := q.PopFront()
	assert.False(t, ok)
	assert.Empty(t, q.Values())
}

func TestQueueOperation(t *testing.T) {
	q := container.NewQueue[int](2)

	// test: push beyond capacity
	for i := range 5 {
		q.PushBack(i)
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, q.Values())

	// test: pop
	v, ok := q.PopFront()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	v, _ = q.PopFront()
	assert.Equal(t, 1, v)

	// test: wrap around
	for i := 5; i < 12; i++ {
		q.PushBack(i)
	}
	assert.Equal(t, 10, q.Len())
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, q.Values())

	// test: drain keeps order
	var got []int
	for {
		v, ok := q.PopFront()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, got)
	assert.Equal(t, 0, q.Len())
}

func TestQueueValuesIsCopy(t *testing.T) {
	q := container.NewQueue[int](4)
	q.PushBack(1)
	values := q.Values()
	values[0] = 100
	assert.Equal(t, []int{1}, q.Values())
}
