package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatDateTpl formats t using a template with placeholders.
//
// Supported placeholders:
// - YYYY: 4-digit year
// - YY: 2-digit year
// - MM: 2-digit month (01-12)
// - DD: 2-digit day (01-31)
// - hh: 2-digit hour (00-23)
// - mm: 2-digit minute (00-59)
// - ss: 2-digit second (00-59)
//
// Example:
//
//	FormatDateTpl(t, "YYYY.MM.DD")       // "2023.11.10"
//	FormatDateTpl(t, "YYYY-MM-DD hh:mm") // "2023-11-10 00:00"
//
// Returns an empty string for the zero time.
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}

	// Longest placeholder first, so YYYY is not eaten by YY.
	replacements := []struct{ ph, layout string }{
		{"YYYY", "2006"},
		{"YY", "06"},
		{"MM", "01"},
		{"DD", "02"},
		{"hh", "15"},
		{"mm", "04"},
		{"ss", "05"},
	}
	goTpl := tpl
	for _, r := range replacements {
		goTpl = strings.ReplaceAll(goTpl, r.ph, r.layout)
	}
	return t.Format(goTpl)
}

// HumanDuration renders d in a compact human form: "2d 5h", "3h 12m",
// "45m", "30s". Sub-second durations come out as "a moment".
func HumanDuration(d time.Duration) string {
	if d < time.Second {
		return "a moment"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
