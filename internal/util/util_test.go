package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformSlice(t *testing.T) {
	out := TransformSlice([]int{1, 2, 3}, func(v int) string {
		if v == 2 {
			return "two"
		}
		return "other"
	})
	assert.Equal(t, []string{"other", "two", "other"}, out)
}

func TestTransformSliceEmptyInput(t *testing.T) {
	out := TransformSlice([]int(nil), func(v int) int { return v })
	assert.Empty(t, out)
}

func TestCanonicalMapIterYieldsSortedKeys(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var seen []string
	for k := range CanonicalMapIter(m) {
		seen = append(seen, k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestCanonicalMapIterStopsOnFalse(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var seen []string
	for k := range CanonicalMapIter(m) {
		seen = append(seen, k)
		if k == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"z": 1, "y": 2, "x": 3}
	assert.Equal(t, []string{"x", "y", "z"}, SortedKeys(m))
}
