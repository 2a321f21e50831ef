package services

import "math"

// Percentage is completed/total as a percentage rounded to two decimals.
// An empty course counts as fully complete.
func Percentage(total, completed int) float64 {
	if total <= 0 {
		return 100
	}
	p := math.Round(float64(completed)/float64(total)*100*100) / 100
	return math.Max(0, math.Min(100, p))
}
