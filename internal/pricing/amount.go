// Package pricing derives line and cart totals from the catalog and the cart.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a currency-agnostic price held in hundredths of the display unit.
type Amount int64

const minorPerMajor = 100

var errInvalidAmount = errors.New("pricing: invalid amount")

// FromMajor converts a whole-unit value.
func FromMajor(major int64) Amount { return Amount(major * minorPerMajor) }

// FromFloat converts a decimal value, rounding half away from zero to two places.
func FromFloat(v float64) Amount {
	return Amount(math.Round(v * minorPerMajor))
}

// ParseAmount parses a decimal string such as "100", "99.5" or "1e3".
// Plain decimals are parsed exactly; extra fraction digits round half away from zero.
func ParseAmount(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errInvalidAmount
	}
	if strings.ContainsAny(raw, "eE") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: %q", errInvalidAmount, raw)
		}
		return FromFloat(f), nil
	}

	neg := false
	body := raw
	switch body[0] {
	case '-':
		neg = true
		body = body[1:]
	case '+':
		body = body[1:]
	}
	whole, frac, _ := strings.Cut(body, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", errInvalidAmount, raw)
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: %q", errInvalidAmount, raw)
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidAmount, raw)
	}
	var minor int64
	roundUp := false
	for i := 0; i < len(frac); i++ {
		d := int64(frac[i] - '0')
		switch {
		case i < 2:
			minor = minor*10 + d
		case i == 2:
			roundUp = d >= 5
		}
	}
	if len(frac) == 1 {
		minor *= 10
	}
	total := major*minorPerMajor + minor
	if roundUp {
		total++
	}
	if neg {
		total = -total
	}
	return Amount(total), nil
}

// Major returns the whole-unit part.
func (a Amount) Major() int64 { return int64(a) / minorPerMajor }

// Minor returns the fractional part in hundredths, always non-negative.
func (a Amount) Minor() int64 {
	m := int64(a) % minorPerMajor
	if m < 0 {
		m = -m
	}
	return m
}

// IsWhole reports whether the amount has no fractional part.
func (a Amount) IsWhole() bool { return a.Minor() == 0 }

// Float returns the amount as a float in display units.
func (a Amount) Float() float64 { return float64(a) / minorPerMajor }

// MaxAmount is the ceiling arithmetic saturates at.
const MaxAmount = Amount(math.MaxInt64)

// Times multiplies a non-negative amount by a quantity, saturating at
// MaxAmount. Non-positive operands give zero.
func (a Amount) Times(qty int) Amount {
	if a <= 0 || qty <= 0 {
		return 0
	}
	if int64(qty) > int64(MaxAmount/a) {
		return MaxAmount
	}
	return a * Amount(qty)
}

// Plus adds two non-negative amounts, saturating at MaxAmount.
func (a Amount) Plus(b Amount) Amount {
	if b > 0 && a > MaxAmount-b {
		return MaxAmount
	}
	return a + b
}

// String renders the shortest plain decimal: "200", "199.5", "0.05".
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
	}
	major := a.Major()
	if major < 0 {
		major = -major
	}
	minor := a.Minor()
	if minor == 0 {
		return sign + strconv.FormatInt(major, 10)
	}
	frac := fmt.Sprintf("%02d", minor)
	frac = strings.TrimRight(frac, "0")
	return sign + strconv.FormatInt(major, 10) + "." + frac
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
