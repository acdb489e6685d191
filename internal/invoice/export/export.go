// Package export renders invoice documents into downloadable files.
//
// Both encoders are pure: given the same document and timezone they produce
// byte-for-byte identical output. Persistence and HTTP delivery live with
// the callers.
package export

import (
	"regexp"
	"time"

	"github.com/tracklane/tracklane/internal/invoice/lineitem"
)

// Document carries everything an invoice export needs, fully resolved.
// PeriodEnd is an exclusive boundary; rendered output shows the inclusive
// last day (PeriodEnd minus one calendar day in the document's timezone).
type Document struct {
	InvoiceNumber       string
	ProjectName         string
	ClientName          string
	ClientLocation      string
	FromLocation        string
	PaymentInstructions string
	PeriodStart         int64 // unix milliseconds
	PeriodEnd           int64 // unix milliseconds, exclusive
	HourlyRateCents     int64
	Currency            string
	LineItems           []lineitem.LineItem
	Timezone            string
}

// File is a fully assembled export ready to hand to a download response.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with "_".
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

func (d Document) location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// periodDates returns the period start and the inclusive end, both as
// calendar dates in the document's timezone.
func (d Document) periodDates() (time.Time, time.Time) {
	loc := d.location()
	start := time.UnixMilli(d.PeriodStart).In(loc)
	endInclusive := time.UnixMilli(d.PeriodEnd).In(loc).AddDate(0, 0, -1)
	return start, endInclusive
}
