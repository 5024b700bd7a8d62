package view

import (
	"strconv"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
)

// Form actions handled by the web layer.
const (
	ActionAdd      = "/cart/add"
	ActionBuy      = "/cart/buy"
	ActionRemove   = "/cart/remove"
	ActionQuantity = "/cart/quantity"
	ActionClear    = "/cart/clear"
	ActionCheckout = "/checkout/whatsapp"
)

// FeaturedLimit is the number of products shown on the home page.
const FeaturedLimit = 6

// ProductCard renders a product tile with View and Add actions.
func ProductCard(p catalog.Product, money format.Money, returnTo string) Node {
	return El("div", Attrs("class", "card", "data-product-id", p.ID),
		productImage(p, ""),
		El("h4", nil, Text(p.Name)),
		description(p),
		El("div", Attrs("class", "price"), Text(money.Format(p.Price))),
		El("div", Attrs("class", "card-actions"),
			El("a", Attrs("class", "btn", "href", ProductHref(p.ID)), Text("View")),
			cartForm(ActionAdd, p.ID, returnTo, "Add"),
		),
	)
}

// ProductGrid renders products into the container with the given id.
// The container is always present so an empty catalog shows an empty grid.
func ProductGrid(id string, products []catalog.Product, money format.Money, returnTo string) Node {
	cards := make([]Node, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard(p, money, returnTo))
	}
	return El("div", Attrs("id", id, "class", "grid"), cards...)
}

// ProductDetail renders the detail section. A nil product renders the
// "Product not found" placeholder.
func ProductDetail(p *catalog.Product, money format.Money, returnTo string) Node {
	if p == nil {
		return El("section", Attrs("id", "productDetail"),
			El("p", Attrs("class", "not-found"), Text("Product not found")),
		)
	}
	return El("section", Attrs("id", "productDetail"),
		El("div", Attrs("class", "card detail"),
			productImage(*p, "detail-image"),
			El("div", nil,
				El("h2", nil, Text(p.Name)),
				description(*p),
				El("h3", Attrs("class", "price"), Text(money.Format(p.Price))),
				El("div", Attrs("class", "card-actions"),
					cartForm(ActionAdd, p.ID, returnTo, "Add to cart"),
					cartForm(ActionBuy, p.ID, returnTo, "Buy Now"),
				),
			),
		),
	)
}

// NotFound is the body of the 404 page.
func NotFound() Node {
	return El("section", Attrs("class", "not-found"),
		El("h2", nil, Text("Page not found")),
		El("p", nil,
			Text("Try the "),
			El("a", Attrs("href", "/shop.html"), Text("shop")),
			Text(" instead."),
		),
	)
}

// Alert tones.
const (
	ToneError = "error"
	ToneInfo  = "info"
)

// Alert renders a dismissable notice. An empty message renders nothing.
func Alert(tone, message string) Node {
	if message == "" {
		return nil
	}
	if tone == "" {
		tone = ToneInfo
	}
	return El("div", Attrs("class", "alert alert-"+tone, "role", "alert"), Text(message))
}

// CartOverlay renders the cart modal. It carries the "hidden" class unless open.
func CartOverlay(cv CartView) Node {
	class := "modal"
	if !cv.Open {
		class += " hidden"
	}
	rows := make([]Node, 0, len(cv.Rows))
	for _, row := range cv.Rows {
		rows = append(rows, cartRow(row, cv.Return))
	}

	payAttrs := Attrs("id", "paypalLink", "class", "btn", "href", cv.PayPal.Href,
		"target", "_blank", "rel", "noopener")
	if !cv.PayPal.Active {
		payAttrs = append(payAttrs, A("aria-disabled", "true"))
	}

	return El("div", Attrs("id", "cartModal", "class", class, "role", "dialog", "aria-label", "Cart"),
		El("div", Attrs("class", "modal-content"),
			El("div", Attrs("class", "modal-header"),
				El("h3", nil, Text("Your cart")),
				El("a", Attrs("id", "closeCart", "class", "btn", "href", cv.Return), Text("Close")),
			),
			El("div", Attrs("id", "cartItems"), rows...),
			El("div", Attrs("class", "cart-total"),
				Text("Total: "),
				El("span", Attrs("id", "cartTotal"), Text(cv.Total)),
			),
			El("div", Attrs("class", "cart-actions"),
				El("form", Attrs("method", "post", "action", ActionCheckout),
					hidden("return", cv.Return),
					El("button", Attrs("id", "checkoutWhatsapp", "class", "btn", "type", "submit"),
						Text("Checkout via WhatsApp")),
				),
				El("a", payAttrs, Text(cv.PayPal.Label)),
				clearForm(cv),
			),
		),
	)
}

var maxQuantity = strconv.Itoa(cart.MaxQuantity)

func cartRow(row CartRow, returnTo string) Node {
	back := WithCartOpen(returnTo)
	return El("div", Attrs("class", "cart-row", "data-product-id", row.ID),
		El("div", nil,
			El("strong", nil, Text(row.Name)),
			El("br", nil),
			El("small", nil, Text(row.UnitPrice+" x ")),
			El("form", Attrs("method", "post", "action", ActionQuantity, "class", "inline"),
				hidden("id", row.ID),
				hidden("return", back),
				El("input", Attrs("type", "number", "name", "qty", "min", "1", "max", maxQuantity,
					"value", strconv.Itoa(row.Qty), "class", "qty")),
				El("button", Attrs("class", "btn", "type", "submit"), Text("Update")),
			),
		),
		El("div", nil,
			El("div", Attrs("class", "line-total"), Text(row.LineTotal)),
			El("form", Attrs("method", "post", "action", ActionRemove),
				hidden("id", row.ID),
				hidden("return", back),
				El("button", Attrs("class", "btn", "type", "submit"), Text("Remove")),
			),
		),
	)
}

func clearForm(cv CartView) Node {
	if len(cv.Rows) == 0 {
		return nil
	}
	return El("form", Attrs("method", "post", "action", ActionClear),
		hidden("return", WithCartOpen(cv.Return)),
		El("button", Attrs("class", "btn btn-secondary", "type", "submit"), Text("Clear cart")),
	)
}

func cartForm(action, id, returnTo, label string) Node {
	return El("form", Attrs("method", "post", "action", action, "class", "inline"),
		hidden("id", id),
		hidden("qty", "1"),
		hidden("return", returnTo),
		El("button", Attrs("class", "btn", "type", "submit"), Text(label)),
	)
}

func hidden(name, value string) Node {
	return El("input", Attrs("type", "hidden", "name", name, "value", value))
}

func productImage(p catalog.Product, class string) Node {
	if p.Image == "" {
		return nil
	}
	attrs := Attrs("src", p.Image, "alt", p.Name, "loading", "lazy")
	if class != "" {
		attrs = append(attrs, A("class", class))
	}
	return El("img", attrs)
}

func description(p catalog.Product) Node {
	if p.DescriptionHTML != "" {
		return El("div", Attrs("class", "description"), Raw(p.DescriptionHTML))
	}
	if p.Description == "" {
		return nil
	}
	return El("p", Attrs("class", "description"), Text(p.Description))
}
