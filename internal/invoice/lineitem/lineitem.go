// Package lineitem aggregates tracked time entries into invoice line items.
package lineitem

import (
	"math"
	"sort"
)

// GeneralGroupKey groups entries that were tracked without an issue.
const GeneralGroupKey = "general"

const msPerHour = 3_600_000

// TimeEntrySnapshot is one tracked interval as handed to the aggregator.
// EndedAt == nil means the timer is still running; such entries contribute
// zero duration.
type TimeEntrySnapshot struct {
	ID          string
	IssueID     *string
	IssueTitle  *string
	Description *string
	StartedAt   int64
	EndedAt     *int64
}

// LineItem is one aggregated billing row: all tracked time for a single
// issue, or for general unassigned time, within an invoice period.
type LineItem struct {
	GroupKey        string  `json:"groupKey"`
	Label           string  `json:"label"`
	TargetIssueID   *string `json:"targetIssueId,omitempty"`
	TotalDurationMs int64   `json:"totalDurationMs"`
	Hours           float64 `json:"hours"`
	HourlyRateCents int64   `json:"hourlyRateCents"`
	AmountCents     int64   `json:"amountCents"`
}

// Totals is the sum over a set of line items. It is always recomputed from
// its source items, never stored on its own.
type Totals struct {
	TotalDurationMs  int64   `json:"totalDurationMs"`
	TotalHours       float64 `json:"totalHours"`
	TotalAmountCents int64   `json:"totalAmountCents"`
}

type accumulator struct {
	issueID         *string
	label           string
	totalDurationMs int64
	order           int
}

// Build groups entries by issue and converts each group into a line item.
// The label for a group is fixed by the first entry seen for it; later
// entries only accumulate duration. Items come back sorted by total duration
// descending, with ties keeping first-encounter order.
func Build(entries []TimeEntrySnapshot, hourlyRateCents int64) []LineItem {
	groups := make(map[string]*accumulator)
	var keys []string

	for _, e := range entries {
		key := GeneralGroupKey
		if e.IssueID != nil {
			key = *e.IssueID
		}

		var duration int64
		if e.EndedAt != nil {
			duration = *e.EndedAt - e.StartedAt
			if duration < 0 {
				duration = 0
			}
		}

		acc, ok := groups[key]
		if !ok {
			label := "General"
			if e.IssueID != nil {
				label = "Issue"
				if e.IssueTitle != nil {
					label = *e.IssueTitle
				}
			}
			acc = &accumulator{issueID: e.IssueID, label: label, order: len(keys)}
			groups[key] = acc
			keys = append(keys, key)
		}
		acc.totalDurationMs += duration
	}

	items := make([]LineItem, 0, len(keys))
	for _, key := range keys {
		acc := groups[key]
		hours := float64(acc.totalDurationMs) / msPerHour
		items = append(items, LineItem{
			GroupKey:        key,
			Label:           acc.label,
			TargetIssueID:   acc.issueID,
			TotalDurationMs: acc.totalDurationMs,
			Hours:           hours,
			HourlyRateCents: hourlyRateCents,
			AmountCents:     int64(math.Round(hours * float64(hourlyRateCents))),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TotalDurationMs > items[j].TotalDurationMs
	})
	return items
}

// TotalsFrom sums duration and amount across items. The per-item rounded
// amounts are authoritative; no reconciliation against a single aggregate
// rounding is attempted.
func TotalsFrom(items []LineItem) Totals {
	var t Totals
	for _, it := range items {
		t.TotalDurationMs += it.TotalDurationMs
		t.TotalAmountCents += it.AmountCents
	}
	t.TotalHours = float64(t.TotalDurationMs) / msPerHour
	return t
}
