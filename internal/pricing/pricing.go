package pricing

import "github.com/MoonsunCreations/Moonsun-Store/internal/cart"

// PriceLookup resolves the unit price for a product id.
type PriceLookup interface {
	PriceOf(id string) (Amount, bool)
}

// LineTotal is unit price times quantity, or zero when the product is missing.
func LineTotal(prices PriceLookup, line cart.Line) Amount {
	if prices == nil {
		return 0
	}
	price, ok := prices.PriceOf(line.ID)
	if !ok {
		return 0
	}
	return price.Times(line.Qty)
}

// CartTotal sums LineTotal over every line in the cart, saturating at MaxAmount.
func CartTotal(prices PriceLookup, c cart.Cart) Amount {
	var total Amount
	for _, line := range c.Lines() {
		total = total.Plus(LineTotal(prices, line))
	}
	return total
}
