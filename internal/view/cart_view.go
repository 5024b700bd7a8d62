package view

import (
	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

// CartView aggregates everything the cart overlay and header badge need.
type CartView struct {
	Open   bool
	Count  int
	Rows   []CartRow
	Total  string
	PayPal checkout.Link
	// Return is where overlay forms send the visitor afterwards.
	Return string
}

// CartRow is one displayed cart line.
type CartRow struct {
	ID        string
	Name      string
	UnitPrice string
	Qty       int
	LineTotal string
}

// NewCartView resolves c against products. Lines whose product is missing are
// not shown but still count toward the badge, matching the stored cart.
func NewCartView(products *catalog.Catalog, c cart.Cart, money format.Money, pay checkout.Link) CartView {
	cv := CartView{
		Count:  c.Count(),
		Total:  money.Format(pricing.CartTotal(products, c)),
		PayPal: pay,
	}
	for _, line := range c.Lines() {
		p, ok := products.Find(line.ID)
		if !ok {
			continue
		}
		cv.Rows = append(cv.Rows, CartRow{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: money.Format(p.Price),
			Qty:       line.Qty,
			LineTotal: money.Format(p.Price.Times(line.Qty)),
		})
	}
	return cv
}
