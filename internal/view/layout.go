package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
)

// Shop is the site branding shown on every page.
type Shop struct {
	Name    string
	Tagline string
	Year    int
}

// Page is a fully assembled storefront page.
type Page struct {
	Shop  Shop
	Title string
	Route Route
	Alert Node
	Main  Node
	Cart  CartView
}

// Layout wraps page content in the shared header, cart overlay and footer.
func Layout(p Page) Node {
	title := p.Shop.Name
	if p.Title != "" && p.Title != p.Shop.Name {
		title = p.Title + " | " + p.Shop.Name
	}
	return Document(El("html", Attrs("lang", "en"),
		El("head", nil,
			El("meta", Attrs("charset", "utf-8")),
			El("meta", Attrs("name", "viewport", "content", "width=device-width, initial-scale=1")),
			El("title", nil, Text(title)),
			El("link", Attrs("rel", "stylesheet", "href", "/assets/styles.css")),
		),
		El("body", Attrs("data-route", p.Route.String()),
			header(p),
			El("main", Attrs("class", "container"), p.Alert, p.Main),
			CartOverlay(p.Cart),
			footer(p.Shop),
		),
	))
}

func header(p Page) Node {
	var tagline Node
	if p.Shop.Tagline != "" {
		tagline = El("p", Attrs("class", "tagline"), Text(p.Shop.Tagline))
	}
	return El("header", Attrs("class", "site-header"),
		El("div", Attrs("class", "brand"),
			El("a", Attrs("href", "/"), Text(p.Shop.Name)),
			tagline,
		),
		El("nav", nil,
			navLink("/", "Home", p.Route == RouteHome),
			navLink("/shop.html", "Shop", p.Route == RouteShop),
			El("a", Attrs("id", "cartBtn", "class", "btn", "href", WithCartOpen(p.Cart.Return)),
				Text("Cart ("),
				El("span", Attrs("id", "cartCount"), Text(strconv.Itoa(p.Cart.Count))),
				Text(")"),
			),
		),
	)
}

func navLink(href, label string, active bool) Node {
	attrs := Attrs("href", href)
	if active {
		attrs = append(attrs, A("aria-current", "page"))
	}
	return El("a", attrs, Text(label))
}

func footer(shop Shop) Node {
	return El("footer", Attrs("class", "site-footer"),
		Text("© "),
		El("span", Attrs("id", "year"), Text(strconv.Itoa(shop.Year))),
		Text(" "+shop.Name),
	)
}

// HomeContent lists the first limit products, FeaturedLimit when limit is not positive.
func HomeContent(products *catalog.Catalog, limit int, money format.Money, returnTo string) Node {
	if limit <= 0 {
		limit = FeaturedLimit
	}
	return El("section", Attrs("class", "featured"),
		El("h2", nil, Text("Featured")),
		ProductGrid("featured", products.Featured(limit), money, returnTo),
	)
}

// ShopContent lists every product.
func ShopContent(products *catalog.Catalog, money format.Money, returnTo string) Node {
	return El("section", Attrs("class", "shop"),
		El("h2", nil, Text("Shop")),
		ProductGrid("productsGrid", products.Products(), money, returnTo),
	)
}

// WithCartOpen adds cart=open to a local path.
func WithCartOpen(path string) string {
	return setQuery(path, "cart", "open")
}

// WithoutCart strips the cart flag from a local path.
func WithoutCart(path string) string {
	return setQuery(path, "cart", "")
}

func setQuery(path, key, value string) string {
	if path == "" {
		path = "/"
	}
	u, err := url.Parse(path)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
