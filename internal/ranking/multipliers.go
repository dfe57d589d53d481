package ranking

import (
	"math"
	"time"
)

// AgeDays returns the whole number of days between pubDate and now, floored at zero.
// Articles dated in the future count as published today.
func AgeDays(pubDate, now time.Time) int64 {
	if pubDate.IsZero() || !now.After(pubDate) {
		return 0
	}
	return int64(now.Sub(pubDate) / (24 * time.Hour))
}

// RecencyDecay returns the hyperbolic decay 1 / (1 + ageDays * perDay).
// It is 1 for today's articles and never increases with age.
func RecencyDecay(pubDate, now time.Time, perDay float64) float64 {
	if perDay <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + float64(AgeDays(pubDate, now))*perDay)
}

// round6 trims float noise for display.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
