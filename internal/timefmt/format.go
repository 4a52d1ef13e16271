// Package timefmt renders elapsed wall-clock durations in the compact form
// chipdo prints after each action, e.g. "850ms", "42s", "2min 05s" or
// "1h 02min 05s".
package timefmt

import (
	"fmt"
	"math"
	"time"
)

// Format renders d using FormatSeconds.
func Format(d time.Duration) string {
	return FormatSeconds(d.Seconds())
}

// FormatSeconds converts a number of seconds into a compact human string.
//
// Breakpoints:
//
//	< 1ms   → "0s"
//	< 1s    → whole milliseconds, "850ms"
//	< 60s   → whole seconds, "42s"
//	< 1h    → "2min 05s"
//	else    → "1h 02min 05s"
//
// Rounding is half-to-even. Negative values are treated as zero, since
// elapsed time is never negative.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0.001 {
		return "0s"
	}

	if seconds < 1.0 {
		return fmt.Sprintf("%.0fms", math.RoundToEven(seconds*1000.0))
	}

	if seconds < 60.0 {
		return fmt.Sprintf("%.0fs", math.RoundToEven(seconds))
	}

	// Round once to whole seconds before splitting, so a value such as
	// 119.7 becomes "2min 00s" and never "1min 60s".
	total := int64(math.RoundToEven(seconds))
	if total < 3600 {
		return fmt.Sprintf("%dmin %02ds", total/60, total%60)
	}

	return fmt.Sprintf("%dh %02dmin %02ds", total/3600, (total/60)%60, total%60)
}
