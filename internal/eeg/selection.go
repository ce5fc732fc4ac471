package eeg

import (
	"fmt"
	"sort"
)

// NormalizeChannels returns the selection sorted ascending with duplicates
// removed. The input slice is not modified.
func NormalizeChannels(channels []int) []int {
	out := append([]int(nil), channels...)
	sort.Ints(out)
	n := 0
	for i, ch := range out {
		if i > 0 && ch == out[n-1] {
			continue
		}
		out[n] = ch
		n++
	}
	return out[:n]
}

// AllChannels returns 1..count.
func AllChannels(count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// CheckChannels verifies that every channel number lies in 1..count.
func CheckChannels(channels []int, count int) error {
	for _, ch := range channels {
		if ch < 1 || ch > count {
			return fmt.Errorf("channel %d out of range 1..%d", ch, count)
		}
	}
	return nil
}

// Difference returns the members of a that are not in b. Both inputs must be
// sorted; the result is sorted.
func Difference(a, b []int) []int {
	out := make([]int, 0, len(a))
	j := 0
	for _, v := range a {
		for j < len(b) && b[j] < v {
			j++
		}
		if j < len(b) && b[j] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Union returns the sorted, de-duplicated union of the given sets.
func Union(sets ...[]int) []int {
	var all []int
	for _, s := range sets {
		all = append(all, s...)
	}
	return NormalizeChannels(all)
}
