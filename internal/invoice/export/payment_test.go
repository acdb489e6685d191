package export

import (
	"reflect"
	"testing"
)

func TestParsePaymentKeyedLines(t *testing.T) {
	got := ParsePayment("Bank: First National\nAccount Name: Acme LLC\nRouting: 021000021\nAccount Number: 123456789")
	want := PaymentFields{
		Bank:          "First National",
		AccountName:   "Acme LLC",
		RoutingNumber: "021000021",
		AccountNumber: "123456789",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParsePaymentKeysCaseInsensitive(t *testing.T) {
	got := ParsePayment("BANK: Chase\naccount: Jane Doe")
	if got.Bank != "Chase" || got.AccountName != "Jane Doe" {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePaymentPositionalFill(t *testing.T) {
	got := ParsePayment("Chase\nJane Doe\n021000021\n999888777\nwire only\nno checks")
	want := PaymentFields{
		Bank:          "Chase",
		AccountName:   "Jane Doe",
		RoutingNumber: "021000021",
		AccountNumber: "999888777",
		Extra:         []string{"wire only", "no checks"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParsePaymentMixedKeyedAndPositional(t *testing.T) {
	// Keyed lines claim their fields; unkeyed lines fill whatever is still
	// empty, in order.
	got := ParsePayment("Account Name: Acme LLC\nChase\n021000021")
	if got.Bank != "Chase" || got.AccountName != "Acme LLC" || got.RoutingNumber != "021000021" {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePaymentUnknownKeyBecomesExtra(t *testing.T) {
	got := ParsePayment("SWIFT: CHASUS33\nBank: Chase")
	if got.Bank != "Chase" {
		t.Fatalf("bank = %q", got.Bank)
	}
	if len(got.Extra) != 1 || got.Extra[0] != "SWIFT: CHASUS33" {
		t.Fatalf("extra = %v", got.Extra)
	}
}

func TestParsePaymentBareColonLineIsPositional(t *testing.T) {
	// "Bank:" has no value so the keyed pattern does not match; the line is
	// taken verbatim as a positional fill.
	got := ParsePayment("Bank:\nAccount Name: Acme")
	if got.Bank != "Bank:" || got.AccountName != "Acme" {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePaymentBlank(t *testing.T) {
	got := ParsePayment("   \n  ")
	if !reflect.DeepEqual(got, PaymentFields{}) {
		t.Fatalf("got %+v", got)
	}
}
