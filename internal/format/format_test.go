package format

import "testing"

func TestCurrencyFromCents(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{0, "USD", "$0.00"},
		{5, "USD", "$0.05"},
		{15000, "USD", "$150.00"},
		{123456, "USD", "$1,234.56"},
		{100000000, "USD", "$1,000,000.00"},
		{-9950, "USD", "-$99.50"},
		{123456, "EUR", "EUR 1,234.56"},
	}
	for _, tc := range cases {
		if got := CurrencyFromCents(tc.cents, tc.currency); got != tc.want {
			t.Fatalf("CurrencyFromCents(%d, %q) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}

func TestHours(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{1.5, "1.5"},
		{0.25, "0.3"},
		{0.24, "0.2"},
		{1234.56, "1,234.6"},
	}
	for _, tc := range cases {
		if got := Hours(tc.hours); got != tc.want {
			t.Fatalf("Hours(%v) = %q, want %q", tc.hours, got, tc.want)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{59_000, "0:59"},
		{61_000, "1:01"},
		{3_600_000, "1:00:00"},
		{3_723_000, "1:02:03"},
	}
	for _, tc := range cases {
		if got := Duration(tc.ms); got != tc.want {
			t.Fatalf("Duration(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestEstimate(t *testing.T) {
	cases := []struct {
		minutes int64
		want    string
	}{
		{45, "45m"},
		{60, "1h"},
		{90, "1.5h"},
		{120, "2h"},
	}
	for _, tc := range cases {
		if got := Estimate(tc.minutes); got != tc.want {
			t.Fatalf("Estimate(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestInteger(t *testing.T) {
	if got := Integer(1234567); got != "1,234,567" {
		t.Fatalf("Integer(1234567) = %q", got)
	}
	if got := Integer(-1000); got != "-1,000" {
		t.Fatalf("Integer(-1000) = %q", got)
	}
}
