package views

import (
	"fmt"
	"time"
)

// formatTimestamp renders a platform timestamp (RFC 3339 or unix millis) as
// a clock time for today and a date otherwise.
func formatTimestamp(raw string, now time.Time) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		var ms int64
		if _, scanErr := fmt.Sscan(raw, &ms); scanErr != nil {
			return raw
		}
		t = time.UnixMilli(ms)
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
