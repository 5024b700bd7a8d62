// Package catalog loads the product catalog and holds the snapshot shared by
// every request.
package catalog

import (
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

// Product is a purchasable item. Products are immutable once loaded.
type Product struct {
	ID          string
	Name        string
	Description string
	// DescriptionHTML is Description rendered as Markdown and sanitised.
	DescriptionHTML string
	Image           string
	Price           pricing.Amount
}

// Catalog is an immutable, ordered product list. A nil *Catalog is empty.
type Catalog struct {
	products []Product
	index    map[string]int
}

// New builds a catalog, keeping the first product for any repeated id.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Empty returns a catalog with no products.
func Empty() *Catalog { return New(nil) }

// Len reports the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Products returns a copy of all products in catalog order.
func (c *Catalog) Products() []Product {
	return c.Featured(c.Len())
}

// Featured returns up to n products from the start of the catalog.
func (c *Catalog) Featured(n int) []Product {
	if c == nil || n <= 0 {
		return nil
	}
	if n > len(c.products) {
		n = len(c.products)
	}
	out := make([]Product, n)
	copy(out, c.products[:n])
	return out
}

// Find looks a product up by id.
func (c *Catalog) Find(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.Find(id)
	return ok
}

// PriceOf returns the unit price for id.
func (c *Catalog) PriceOf(id string) (pricing.Amount, bool) {
	p, ok := c.Find(id)
	if !ok {
		return 0, false
	}
	return p.Price, true
}
