// Package cart models the visitor's pending selection of products as an
// ordered list of lines and the pure transitions that change it.
package cart

import (
	"errors"
	"strconv"
	"strings"
)

// ErrProductNotFound is returned when a product id does not resolve against the catalog.
var ErrProductNotFound = errors.New("cart: product not found")

// Finder reports whether a product id exists in the current catalog.
type Finder interface {
	Contains(id string) bool
}

// MaxQuantity caps a single line. Adds past it saturate.
const MaxQuantity = 999

// Line pairs a product id with a quantity between one and MaxQuantity.
type Line struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

// Cart is an immutable, insertion-ordered set of lines keyed by product id.
// Every transition returns a new Cart and leaves the receiver untouched.
type Cart struct {
	lines []Line
}

// New builds a cart from lines, merging duplicate ids into the first occurrence,
// dropping blank ids and clamping quantities into [1, MaxQuantity].
func New(lines ...Line) Cart {
	out := make([]Line, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ID)
		if id == "" {
			continue
		}
		qty := clampQuantity(line.Qty)
		if idx, ok := seen[id]; ok {
			out[idx].Qty = addQuantity(out[idx].Qty, qty)
			continue
		}
		seen[id] = len(out)
		out = append(out, Line{ID: id, Qty: qty})
	}
	return Cart{lines: out}
}

// Lines returns a copy of the cart lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len reports the number of distinct lines.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Count sums the quantities across all lines.
func (c Cart) Count() int {
	total := 0
	for _, line := range c.lines {
		total += line.Qty
	}
	return total
}

// Quantity returns the quantity recorded for id.
func (c Cart) Quantity(id string) (int, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return 0, false
	}
	return c.lines[idx].Qty, true
}

// Add increments the line for id by qty, inserting it at the end when absent.
// Unknown ids leave the cart unchanged and return ErrProductNotFound.
func (c Cart) Add(products Finder, id string, qty int) (Cart, error) {
	id = strings.TrimSpace(id)
	if id == "" || products == nil || !products.Contains(id) {
		return c, ErrProductNotFound
	}
	qty = clampQuantity(qty)

	next := c.Lines()
	if idx := c.indexOf(id); idx >= 0 {
		next[idx].Qty = addQuantity(next[idx].Qty, qty)
		return Cart{lines: next}, nil
	}
	return Cart{lines: append(next, Line{ID: id, Qty: qty})}, nil
}

// Remove drops the line for id. Missing ids are a no-op.
func (c Cart) Remove(id string) Cart {
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}
	next := make([]Line, 0, len(c.lines)-1)
	next = append(next, c.lines[:idx]...)
	next = append(next, c.lines[idx+1:]...)
	return Cart{lines: next}
}

// SetQuantity replaces the quantity for id, clamped into [1, MaxQuantity].
// Missing ids are a no-op.
func (c Cart) SetQuantity(id string, qty int) Cart {
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}
	next := c.Lines()
	next[idx].Qty = clampQuantity(qty)
	return Cart{lines: next}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart { return Cart{} }

// ParseQuantity converts user input into a quantity the way a number input is
// read: leading digits win ("3.7" is 3), blank, non-numeric or non-positive
// input becomes 1 and anything larger than MaxQuantity becomes MaxQuantity.
func ParseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 1
	}
	// Out-of-range input comes back saturated at the int bounds.
	return clampQuantity(n)
}

func clampQuantity(qty int) int {
	switch {
	case qty < 1:
		return 1
	case qty > MaxQuantity:
		return MaxQuantity
	}
	return qty
}

// addQuantity adds two clamped quantities, saturating at MaxQuantity.
func addQuantity(a, b int) int {
	if b > MaxQuantity-a {
		return MaxQuantity
	}
	return clampQuantity(a + b)
}

func (c Cart) indexOf(id string) int {
	id = strings.TrimSpace(id)
	for i, line := range c.lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}
