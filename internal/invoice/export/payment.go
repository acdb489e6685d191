package export

import (
	"regexp"
	"strings"
)

// PaymentFields is the structured form of free-text payment instructions.
type PaymentFields struct {
	Bank          string
	AccountName   string
	RoutingNumber string
	AccountNumber string
	Extra         []string
}

var keyedLine = regexp.MustCompile(`^([^:]+):\s*(.+)$`)

// ParsePayment extracts bank details from free-text instructions. Lines of
// the form "Key: value" fill the matching field (case-insensitive keys:
// bank, account name or account, routing number or routing, account
// number). Unkeyed lines fill the still-empty fields positionally in the
// order bank, account name, routing number, account number. Anything left
// over, including lines with unrecognized keys, becomes an extra note line.
func ParsePayment(instructions string) PaymentFields {
	var result PaymentFields

	text := strings.TrimSpace(instructions)
	if text == "" {
		return result
	}

	var unkeyed []string
	for _, raw := range splitLines(text) {
		m := keyedLine.FindStringSubmatch(raw)
		if m == nil {
			unkeyed = append(unkeyed, raw)
			continue
		}

		key := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}

		switch key {
		case "bank":
			result.Bank = value
		case "account name", "account":
			result.AccountName = value
		case "routing number", "routing":
			result.RoutingNumber = value
		case "account number":
			result.AccountNumber = value
		default:
			result.Extra = append(result.Extra, raw)
		}
	}

	slots := []*string{&result.Bank, &result.AccountName, &result.RoutingNumber, &result.AccountNumber}
	next := 0
	for _, line := range unkeyed {
		for next < len(slots) && *slots[next] != "" {
			next++
		}
		if next < len(slots) {
			*slots[next] = line
			next++
		} else {
			result.Extra = append(result.Extra, line)
		}
	}

	return result
}

// splitLines splits on newlines, trims each line, and drops empty ones.
func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
