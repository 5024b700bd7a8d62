package checkout

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

const (
	// DefaultPhone is the placeholder WhatsApp number used until one is configured.
	DefaultPhone = "977XXXXXXXXX"
	// DefaultPayPalAccount is the placeholder paypal.me handle.
	DefaultPayPalAccount = "YourPayPalName"

	whatsAppBase = "https://wa.me/"
	payPalBase   = "https://www.paypal.me/"
)

// ErrEmptyCart is returned when a checkout is attempted with no lines.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// Config holds the merchant-facing checkout settings.
type Config struct {
	Phone         string
	PayPalAccount string
	Money         format.Money
}

// DefaultConfig returns the placeholder merchant settings.
func DefaultConfig() Config {
	return Config{
		Phone:         DefaultPhone,
		PayPalAccount: DefaultPayPalAccount,
		Money:         format.NewMoney("Rs", "en"),
	}
}

// OrderLine is one resolved cart line.
type OrderLine struct {
	ID    string
	Name  string
	Qty   int
	Unit  pricing.Amount
	Total pricing.Amount
}

// Order is a cart resolved against the catalog. Lines whose product has
// disappeared are left out.
type Order struct {
	Lines []OrderLine
	Count int
	Total pricing.Amount
}

// Summarize resolves c against products.
func Summarize(products *catalog.Catalog, c cart.Cart) Order {
	var order Order
	for _, line := range c.Lines() {
		p, ok := products.Find(line.ID)
		if !ok {
			continue
		}
		total := p.Price.Times(line.Qty)
		order.Lines = append(order.Lines, OrderLine{
			ID:    p.ID,
			Name:  p.Name,
			Qty:   line.Qty,
			Unit:  p.Price,
			Total: total,
		})
		order.Count += line.Qty
		order.Total = order.Total.Plus(total)
	}
	return order
}

// BuildWhatsAppMessage renders the order text sent to the merchant.
func BuildWhatsAppMessage(products *catalog.Catalog, c cart.Cart, cfg Config) (string, error) {
	if c.IsEmpty() {
		return "", ErrEmptyCart
	}
	order := Summarize(products, c)

	var b strings.Builder
	b.WriteString("Hello, I want to order:\n")
	for _, line := range order.Lines {
		b.WriteString("- ")
		b.WriteString(line.Name)
		b.WriteString(" x ")
		b.WriteString(strconv.Itoa(line.Qty))
		b.WriteString(" = ")
		b.WriteString(cfg.Money.Plain(line.Total))
		b.WriteString("\n")
	}
	b.WriteString("Total: ")
	b.WriteString(cfg.Money.Plain(pricing.CartTotal(products, c)))
	b.WriteString("\nName: \nAddress: \nPayment method: ")
	return b.String(), nil
}

// WhatsAppURL builds the wa.me deep link carrying msg as prefilled text.
func WhatsAppURL(cfg Config, msg string) string {
	phone := strings.TrimSpace(cfg.Phone)
	if phone == "" {
		phone = DefaultPhone
	}
	return whatsAppBase + url.PathEscape(phone) + "?text=" + encodeComponent(msg)
}

// Link is a rendered payment link.
type Link struct {
	Href   string
	Label  string
	Active bool
}

// PaymentLink builds the paypal.me link for total.
func PaymentLink(cfg Config, total pricing.Amount) Link {
	account := strings.TrimSpace(cfg.PayPalAccount)
	if account == "" {
		account = DefaultPayPalAccount
	}
	link := Link{
		Href:   payPalBase + url.PathEscape(account) + "/" + total.String(),
		Label:  "Pay with PayPal",
		Active: total > 0,
	}
	if link.Active {
		link.Label = "Pay " + cfg.Money.Plain(total) + " via PayPal"
	}
	return link
}

// encodeComponent percent-encodes s for a query value with spaces as %20,
// which is how browsers' encodeURIComponent output looks to wa.me.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
