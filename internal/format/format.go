package format

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

// Money renders amounts for display with a currency label and locale-aware grouping.
type Money struct {
	label   string
	printer *message.Printer
}

// NewMoney builds a formatter. An unparseable locale falls back to English.
// Example: NewMoney("Rs", "en").Format(pricing.FromMajor(1200)) => "Rs 1,200"
func NewMoney(label, locale string) Money {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return Money{
		label:   strings.TrimSpace(label),
		printer: message.NewPrinter(tag),
	}
}

// Label returns the currency label.
func (m Money) Label() string { return m.label }

// Format renders amount with grouping; fractional amounts always show two decimals.
func (m Money) Format(amount pricing.Amount) string {
	p := m.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	var digits string
	if amount.IsWhole() {
		digits = p.Sprint(number.Decimal(amount.Major()))
	} else {
		digits = p.Sprint(number.Decimal(amount.Float(), number.Scale(2)))
	}
	if m.label == "" {
		return digits
	}
	return m.label + " " + digits
}

// Plain renders amount without grouping, as used in links and messages ("Rs 1200").
func (m Money) Plain(amount pricing.Amount) string {
	if m.label == "" {
		return amount.String()
	}
	return m.label + " " + amount.String()
}
