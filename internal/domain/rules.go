package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var Categories = []string{"Home Delivery", "Frozen Products", "SFH"}

var Units = []string{"KG", "GM", "Pieces", "Batch", "Plates", "Portion"}

var Subcategories = []string{
	"Infrastructure", "Meat and Fish", "Veggies", "Grocery", "Dairy", "Bakery",
	"Kitchen Tool", "Fuel", "Serving Dish", "Operating Supplies", "Packaging",
}

var PaymentStatuses = []string{"Live", "Due", "Paid"}

var PaymentModes = []string{"CurrentUPI", "Cash", "Card", "PersonalUPI", "PersonalCash"}

const (
	PaymentStatusLive = "Live"
	PaymentStatusDue  = "Due"
	PaymentStatusPaid = "Paid"
)

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func ValidCategory(c string) bool      { return oneOf(c, Categories) }
func ValidUnit(u string) bool          { return oneOf(u, Units) }
func ValidSubcategory(s string) bool   { return oneOf(s, Subcategories) }
func ValidPaymentStatus(s string) bool { return oneOf(s, PaymentStatuses) }
func ValidPaymentMode(m string) bool   { return oneOf(m, PaymentModes) }

var gramsPerKG = decimal.NewFromInt(1000)

// ConvertQty converts a quantity between units. Only the KG<->GM pair has a
// defined conversion; any other mismatch is an error, never coerced.
func ConvertQty(qty decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	switch {
	case fromUnit == toUnit:
		return qty, nil
	case fromUnit == "KG" && toUnit == "GM":
		return qty.Mul(gramsPerKG), nil
	case fromUnit == "GM" && toUnit == "KG":
		return qty.Div(gramsPerKG), nil
	default:
		return decimal.Zero, fmt.Errorf("unit mismatch: cannot convert %s -> %s", fromUnit, toUnit)
	}
}

var codePattern = regexp.MustCompile(`^[1-9][A-Z]{2}$`)

// ValidProductCode reports whether code is a well-formed product code:
// one digit 1-9 followed by two uppercase letters, e.g. 1CM or 5CB.
func ValidProductCode(code string) bool {
	return codePattern.MatchString(code)
}

// AssignProductCode derives an unused product code from the item name and its
// item category. The second character is the first letter of the item category
// (falling back to the name), the third is the first letter of the name, and
// the leading digit 1-9 is chosen to avoid collisions. If all nine digits for
// that letter pair are taken, the third letter is swept A-Z as a safety net;
// exhausting that too is reported as an error rather than looping forever.
func AssignProductCode(name, itemCategory string, existing map[string]bool) (string, error) {
	baseCat := strings.TrimSpace(itemCategory)
	baseName := strings.TrimSpace(name)
	if baseCat == "" {
		baseCat = baseName
	}

	l2 := firstLetter(baseCat)
	l3 := firstLetter(baseName)

	for d := 1; d <= 9; d++ {
		code := fmt.Sprintf("%d%c%c", d, l2, l3)
		if !existing[code] {
			return code, nil
		}
	}

	for i := 0; i < 26; i++ {
		extra := rune('A' + i)
		for d := 1; d <= 9; d++ {
			code := fmt.Sprintf("%d%c%c", d, l2, extra)
			if !existing[code] {
				return code, nil
			}
		}
	}

	return "", fmt.Errorf("no free product code for prefix %c", l2)
}

func firstLetter(s string) rune {
	if s == "" {
		return 'X'
	}
	c := rune(strings.ToUpper(s)[0])
	if c < 'A' || c > 'Z' {
		return 'X'
	}
	return c
}
