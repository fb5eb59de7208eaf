package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertQtyKGAndGM(t *testing.T) {
	got, err := ConvertQty(decimal.NewFromFloat(2.5), "KG", "GM")
	if err != nil {
		t.Fatalf("KG->GM: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected 2500 GM, got %s", got)
	}

	got, err = ConvertQty(decimal.NewFromInt(500), "GM", "KG")
	if err != nil {
		t.Fatalf("GM->KG: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("expected 0.5 KG, got %s", got)
	}

	same, err := ConvertQty(decimal.NewFromInt(7), "Pieces", "Pieces")
	if err != nil || !same.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("same-unit conversion changed value: %s (%v)", same, err)
	}
}

func TestConvertQtyRejectsOtherPairs(t *testing.T) {
	for _, pair := range [][2]string{
		{"Pieces", "KG"},
		{"KG", "Pieces"},
		{"Plates", "Portion"},
	} {
		if _, err := ConvertQty(decimal.NewFromInt(1), pair[0], pair[1]); err == nil {
			t.Fatalf("expected error converting %s -> %s", pair[0], pair[1])
		}
	}
}

func TestValidProductCode(t *testing.T) {
	for code, want := range map[string]bool{
		"1CM":  true,
		"9ZZ":  true,
		"0CM":  false,
		"1cm":  false,
		"1C":   false,
		"1CMX": false,
		"ACM":  false,
	} {
		if got := ValidProductCode(code); got != want {
			t.Fatalf("ValidProductCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestAssignProductCodeUsesCategoryAndNameLetters(t *testing.T) {
	code, err := AssignProductCode("Momo", "Chicken", map[string]bool{})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if code != "1CM" {
		t.Fatalf("expected 1CM, got %s", code)
	}

	// Blank item category falls back to the name.
	code, err = AssignProductCode("Momo", "", map[string]bool{})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if code != "1MM" {
		t.Fatalf("expected 1MM, got %s", code)
	}
}

func TestAssignProductCodeSkipsTakenDigits(t *testing.T) {
	existing := map[string]bool{"1CM": true, "2CM": true}
	code, err := AssignProductCode("Momo", "Chicken", existing)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if code != "3CM" {
		t.Fatalf("expected 3CM, got %s", code)
	}
}

func TestAssignProductCodeFallsBackToLetterSweep(t *testing.T) {
	existing := map[string]bool{}
	for d := 1; d <= 9; d++ {
		existing[fmt.Sprintf("%dCM", d)] = true
	}
	code, err := AssignProductCode("Momo", "Chicken", existing)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if code != "1CA" {
		t.Fatalf("expected sweep to yield 1CA, got %s", code)
	}
}

func TestAssignProductCodeExhaustionIsAnError(t *testing.T) {
	existing := map[string]bool{}
	for d := 1; d <= 9; d++ {
		for l := 'A'; l <= 'Z'; l++ {
			existing[fmt.Sprintf("%dC%c", d, l)] = true
		}
	}
	if _, err := AssignProductCode("Momo", "Chicken", existing); err == nil {
		t.Fatalf("expected exhaustion error")
	}
}

func TestEnumValidators(t *testing.T) {
	if !ValidCategory("Frozen Products") || ValidCategory("Takeaway") {
		t.Fatalf("category validation broken")
	}
	if !ValidUnit("Batch") || ValidUnit("Dozen") {
		t.Fatalf("unit validation broken")
	}
	if !ValidSubcategory("Meat and Fish") || ValidSubcategory("Snacks") {
		t.Fatalf("subcategory validation broken")
	}
	if !ValidPaymentStatus("Due") || ValidPaymentStatus("Pending") {
		t.Fatalf("payment status validation broken")
	}
	if !ValidPaymentMode("PersonalUPI") || ValidPaymentMode("Cheque") {
		t.Fatalf("payment mode validation broken")
	}
}
