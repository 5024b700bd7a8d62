package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
	"github.com/MoonsunCreations/Moonsun-Store/internal/middleware"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/httpx"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/observability"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
	"github.com/MoonsunCreations/Moonsun-Store/internal/view"
)

const maxFormBodySize = 16 * 1024

var (
	errCatalogRequired  = errors.New("storefront: catalog is required")
	errCookiesRequired  = errors.New("storefront: cookie codec is required")
	errCheckoutRequired = errors.New("storefront: checkout service is required")
)

// StorefrontDeps wires the storefront handlers.
type StorefrontDeps struct {
	Catalog       func() *catalog.Catalog
	Cookies       *middleware.CookieCodec
	Checkout      *checkout.Service
	Money         format.Money
	ShopName      string
	Tagline       string
	FeaturedLimit int
	Metrics       *observability.CartMetrics
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Storefront renders the shop pages and applies cart mutations.
type Storefront struct {
	catalog  func() *catalog.Catalog
	cookies  *middleware.CookieCodec
	checkout *checkout.Service
	money    format.Money
	shop     view.Shop
	featured int
	metrics  *observability.CartMetrics
	logger   *zap.Logger
	now      func() time.Time

	pages map[view.Route]pageFunc
}

// pageContent is what a route contributes to the shared layout.
type pageContent struct {
	title  string
	route  view.Route
	main   view.Node
	alert  view.Node
	status int
}

type pageFunc func(r *http.Request, products *catalog.Catalog, returnTo string) pageContent

// NewStorefront validates deps and builds the page dispatch table.
func NewStorefront(deps StorefrontDeps) (*Storefront, error) {
	if deps.Catalog == nil {
		return nil, errCatalogRequired
	}
	if deps.Cookies == nil {
		return nil, errCookiesRequired
	}
	if deps.Checkout == nil {
		return nil, errCheckoutRequired
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := strings.TrimSpace(deps.ShopName)
	if name == "" {
		name = "Moonsun Store"
	}

	s := &Storefront{
		catalog:  deps.Catalog,
		cookies:  deps.Cookies,
		checkout: deps.Checkout,
		money:    deps.Money,
		shop:     view.Shop{Name: name, Tagline: strings.TrimSpace(deps.Tagline)},
		featured: deps.FeaturedLimit,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      now,
	}
	s.pages = map[view.Route]pageFunc{
		view.RouteHome:    s.homePage,
		view.RouteShop:    s.shopPage,
		view.RouteProduct: s.productPage,
	}
	return s, nil
}

// PageRoutes registers every storefront page path.
func (s *Storefront) PageRoutes(r chi.Router) {
	for _, paths := range view.Paths {
		for _, path := range paths {
			r.Get(path, s.servePage)
		}
	}
}

// CartRoutes registers the cart form actions under /cart.
func (s *Storefront) CartRoutes(r chi.Router) {
	r.Post("/add", s.addToCart)
	r.Post("/buy", s.buyNow)
	r.Post("/remove", s.removeFromCart)
	r.Post("/quantity", s.changeQuantity)
	r.Post("/clear", s.clearCart)
}

// CheckoutRoutes registers the checkout actions under /checkout.
func (s *Storefront) CheckoutRoutes(r chi.Router) {
	r.Post("/whatsapp", s.checkoutWhatsApp)
}

// APIRoutes registers the JSON endpoints under /api.
func (s *Storefront) APIRoutes(r chi.Router) {
	r.Get("/cart", s.getCartJSON)
}

// NotFound renders the 404 page.
func (s *Storefront) NotFound(w http.ResponseWriter, r *http.Request) {
	products := s.catalog()
	c := cart.Restore(s.cookies.Store(w, r))
	returnTo := "/"
	if r.Method == http.MethodGet {
		returnTo = view.WithoutCart(r.URL.RequestURI())
	}
	s.render(w, products, c, pageContent{
		title:  "Not found",
		route:  view.RouteUnknown,
		main:   view.NotFound(),
		status: http.StatusNotFound,
	}, returnTo, false)
}

// RenderPanic answers a request whose handler panicked.
func (s *Storefront) RenderPanic(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = view.Render(w, view.Layout(view.Page{
		Shop:  s.shopForNow(),
		Title: "Error",
		Alert: view.Alert(view.ToneError, "Something went wrong. Please try again."),
		Cart:  view.CartView{Return: "/"},
	}))
}

func (s *Storefront) servePage(w http.ResponseWriter, r *http.Request) {
	route := view.ResolveRoute(r.URL.Path)
	page, ok := s.pages[route]
	if !ok {
		s.NotFound(w, r)
		return
	}
	products := s.catalog()
	c := cart.Restore(s.cookies.Store(w, r))
	returnTo := view.WithoutCart(r.URL.RequestURI())
	content := page(r, products, returnTo)
	content.route = route
	s.render(w, products, c, content, returnTo, r.URL.Query().Get("cart") == "open")
}

func (s *Storefront) homePage(_ *http.Request, products *catalog.Catalog, returnTo string) pageContent {
	return pageContent{main: view.HomeContent(products, s.featured, s.money, returnTo)}
}

func (s *Storefront) shopPage(_ *http.Request, products *catalog.Catalog, returnTo string) pageContent {
	return pageContent{title: "Shop", main: view.ShopContent(products, s.money, returnTo)}
}

func (s *Storefront) productPage(r *http.Request, products *catalog.Catalog, returnTo string) pageContent {
	p, ok := products.Find(strings.TrimSpace(r.URL.Query().Get("id")))
	if !ok {
		return pageContent{title: "Product not found", main: view.ProductDetail(nil, s.money, returnTo), status: http.StatusNotFound}
	}
	return pageContent{title: p.Name, main: view.ProductDetail(&p, s.money, returnTo)}
}

// render writes the full page for c. returnTo is where the page's forms send
// the visitor back to.
func (s *Storefront) render(w http.ResponseWriter, products *catalog.Catalog, c cart.Cart, content pageContent, returnTo string, cartOpen bool) {
	total := pricing.CartTotal(products, c)
	cv := view.NewCartView(products, c, s.money, s.checkout.PaymentLink(total))
	cv.Open = cartOpen
	cv.Return = returnTo

	page := view.Page{
		Shop:  s.shopForNow(),
		Title: content.title,
		Route: content.route,
		Alert: content.alert,
		Main:  content.main,
		Cart:  cv,
	}

	status := content.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := view.Render(w, view.Layout(page)); err != nil {
		s.logger.Warn("page render failed", zap.String("route", content.route.String()), zap.Error(err))
	}
}

func (s *Storefront) shopForNow() view.Shop {
	shop := s.shop
	shop.Year = s.now().Year()
	return shop
}
