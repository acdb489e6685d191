package number

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestFormatDefaultTemplate(t *testing.T) {
	issuedAt := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	got, err := Format(DefaultTemplate, issuedAt, "0A2Z")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if got != "INV-20240309-0A2Z" {
		t.Fatalf("got %q, want %q", got, "INV-20240309-0A2Z")
	}
}

func TestFormatUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*3600)
	// Local date is March 10 but the UTC date is still March 9.
	issuedAt := time.Date(2024, 3, 10, 10, 0, 0, 0, loc)
	got, err := Format(DefaultTemplate, issuedAt, "AAAA")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if !strings.Contains(got, "20240309") {
		t.Fatalf("got %q, want UTC date 20240309", got)
	}
}

func TestFormatRejectsEmptyTemplate(t *testing.T) {
	if _, err := Format("", time.Now(), "0000"); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestFormatRejectsUnknownToken(t *testing.T) {
	if _, err := Format("INV-{SEQ}", time.Now(), "0000"); err == nil {
		t.Fatal("expected error for unresolved token")
	}
}

func TestRandomSuffixShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-Z]{4}$`)
	for i := 0; i < 100; i++ {
		s := RandomSuffix()
		if !pattern.MatchString(s) {
			t.Fatalf("suffix %q does not match %v", s, pattern)
		}
	}
}

func TestGenerateShape(t *testing.T) {
	pattern := regexp.MustCompile(`^INV-\d{8}-[0-9A-Z]{4}$`)
	got := Generate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if !pattern.MatchString(got) {
		t.Fatalf("generated number %q does not match %v", got, pattern)
	}
}
