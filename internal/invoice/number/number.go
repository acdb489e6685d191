// Package number formats human-readable invoice numbers.
package number

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const DefaultTemplate = "INV-{YYYY}{MM}{DD}-{RAND4}"

const suffixSpace = 36 * 36 * 36 * 36

// RandomSuffix returns a 4-character base36 suffix, uppercased and
// left-padded with zeros.
func RandomSuffix() string {
	s := strings.ToUpper(strconv.FormatInt(rand.Int64N(suffixSpace), 36))
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

// Format renders template with the issue date and suffix. Dates resolve
// in UTC so the same instant numbers identically everywhere.
//
// This function is pure: no side effects, no DB access, fully
// deterministic for a given template, time, and suffix.
func Format(template string, issuedAt time.Time, suffix string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}

	utc := issuedAt.UTC()
	out := template
	out = strings.ReplaceAll(out, "{YYYY}", utc.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", utc.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", utc.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", utc.Format("02"))
	out = strings.ReplaceAll(out, "{RAND4}", suffix)

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice number template: %s", out)
	}
	return out, nil
}

// Generate issues a number from the default template.
func Generate(issuedAt time.Time) string {
	out, _ := Format(DefaultTemplate, issuedAt, RandomSuffix())
	return out
}
