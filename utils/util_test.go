package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils"
)

func TestFind(t *testing.T) {
	data := []int{1, 2, 3}
	dataMap := map[string]int{"one": 1, "two": 2, "three": 3}

	ok, failed := utils.Find(dataMap, data, nil)
	assert.Equal(t, data, ok)
	assert.Empty(t, failed)

	ok, failed = utils.Find(dataMap, data, []string{"three", "four", "one"})
	assert.Equal(t, []int{3, 1}, ok)
	assert.Equal(t, []string{"four"}, failed)
}
