// Package format holds display formatting for durations, hours, and money.
// Everything here is a pure function of its inputs; no process-wide
// formatter state is kept, so the helpers are safe from any goroutine.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Integer formats a whole number with thousands separators ("12,345").
func Integer(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + groupDigits(strconv.FormatInt(v, 10))
}

// OneDecimal formats a number with exactly one decimal place and thousands
// separators ("1,234.5"). Halves round away from zero.
func OneDecimal(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	rounded := math.Round(v*10) / 10
	s := strconv.FormatFloat(rounded, 'f', 1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupDigits(whole) + "." + frac
}

// Hours renders an hour quantity the way invoice tables display it.
func Hours(hours float64) string {
	return OneDecimal(hours)
}

// CurrencyFromCents renders an integer cent amount as a display string:
// "$1,234.56" for USD, "EUR 1,234.56" for other currency codes.
func CurrencyFromCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := fmt.Sprintf("%s.%02d", groupDigits(strconv.FormatInt(cents/100, 10)), cents%100)
	if strings.EqualFold(currency, "USD") {
		return sign + "$" + amount
	}
	return sign + strings.ToUpper(currency) + " " + amount
}

// Duration formats elapsed milliseconds as h:mm:ss, or m:ss under an hour.
func Duration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Estimate formats an estimate in minutes as "45m", "2h", or "1.5h".
func Estimate(minutes int64) string {
	if minutes < 60 {
		return Integer(minutes) + "m"
	}
	hours := float64(minutes) / 60
	if math.Abs(hours-math.Round(hours)) < 1e-9 {
		return Integer(int64(math.Round(hours))) + "h"
	}
	return OneDecimal(hours) + "h"
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
