package domain

import (
	"regexp"
	"strings"
)

const (
	maxLabelLength = 32
	maxLabelCount  = 20
)

var labelWhitespace = regexp.MustCompile(`\s+`)

// NormalizeLabels trims and collapses whitespace, caps each label at 32
// characters, de-dupes case-insensitively keeping the first spelling seen,
// and keeps at most 20 labels.
func NormalizeLabels(labels []string) []string {
	cleaned := make([]string, 0, len(labels))
	seen := make(map[string]bool)

	for _, raw := range labels {
		label := labelWhitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
		if label == "" {
			continue
		}
		if runes := []rune(label); len(runes) > maxLabelLength {
			label = string(runes[:maxLabelLength])
		}

		key := strings.ToLower(label)
		if seen[key] {
			continue
		}
		seen[key] = true

		cleaned = append(cleaned, label)
		if len(cleaned) >= maxLabelCount {
			break
		}
	}

	return cleaned
}
