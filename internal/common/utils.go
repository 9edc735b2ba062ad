package common

import (
	"math"
	"strings"
)

// ContainsAnyFold reports whether s contains any of subs, ignoring case.
func ContainsAnyFold(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Round rounds to the nearest integer, halves toward positive infinity
// (-2.5 becomes -2, 2.5 becomes 3).
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
