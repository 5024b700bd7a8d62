package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
	"github.com/MoonsunCreations/Moonsun-Store/internal/middleware"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/observability"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
	"github.com/MoonsunCreations/Moonsun-Store/internal/testutil"
)

const testSecret = "test-secret"

type testShop struct {
	router  chi.Router
	cookies *middleware.CookieCodec
	cookie  *http.Cookie
}

func newTestShop(t *testing.T, products *catalog.Catalog) *testShop {
	t.Helper()

	cookies := middleware.NewCookieCodec(testSecret)
	svc, err := checkout.NewService(checkout.ServiceDeps{
		Catalog:     func() *catalog.Catalog { return products },
		Config:      checkout.DefaultConfig(),
		IDGenerator: func() string { return "01TESTREF" },
	})
	require.NoError(t, err)
	metrics, err := observability.NewCartMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	shop, err := NewStorefront(StorefrontDeps{
		Catalog:  func() *catalog.Catalog { return products },
		Cookies:  cookies,
		Checkout: svc,
		Money:    format.NewMoney("Rs", "en"),
		ShopName: "Moonsun Store",
		Metrics:  metrics,
		Clock:    func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	router := NewRouter(
		WithPageRoutes(shop.PageRoutes),
		WithCartRoutes(shop.CartRoutes),
		WithCheckoutRoutes(shop.CheckoutRoutes),
		WithAPIRoutes(shop.APIRoutes),
		WithNotFound(shop.NotFound),
		WithHealthHandlers(NewHealthHandlers(WithProductCount(products.Len))),
	)
	return &testShop{router: router, cookies: cookies}
}

func (s *testShop) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return s.do(req)
}

func (s *testShop) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// do sends req with the current cart cookie and keeps any cookie the response sets.
func (s *testShop) do(req *http.Request) *httptest.ResponseRecorder {
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == cart.StorageKey {
			s.cookie = c
		}
	}
	return rec
}

func TestHomePageRendersFeaturedProducts(t *testing.T) {
	shop := newTestShop(t, testutil.ManyProducts(8))

	for _, path := range []string{"/", "/index.html"} {
		rec := shop.get(t, path)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

		doc := testutil.ParseHTML(t, rec.Body.Bytes())
		require.Equal(t, 6, doc.Find("#featured .card").Length())
		require.Equal(t, "0", doc.Find("#cartCount").Text())
		require.Equal(t, "2026", doc.Find("#year").Text())
		require.True(t, doc.Find("#cartModal").HasClass("hidden"))
	}
}

func TestShopAndProductPages(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())

	rec := shop.get(t, "/shop")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, 3, doc.Find("#productsGrid .card").Length())

	rec = shop.get(t, "/product.html?id=p3")
	require.Equal(t, http.StatusOK, rec.Code)
	doc = testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Star Earrings", doc.Find("#productDetail h2").Text())
	require.Equal(t, "Rs 1,200", doc.Find("#productDetail .price").Text())

	for _, target := range []string{"/product.html", "/product.html?id=nope"} {
		rec = shop.get(t, target)
		require.Equal(t, http.StatusNotFound, rec.Code)
		doc = testutil.ParseHTML(t, rec.Body.Bytes())
		require.Equal(t, "Product not found", strings.TrimSpace(doc.Find("#productDetail").Text()))
	}
}

func TestCartScenario(t *testing.T) {
	products := catalog.New([]catalog.Product{{ID: "p1", Name: "Ring", Price: pricing.FromMajor(100)}})
	shop := newTestShop(t, products)

	rec := shop.post(t, "/cart/add", url.Values{"id": {"p1"}, "qty": {"2"}, "return": {"/shop.html"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/shop.html", rec.Header().Get("Location"))
	require.NotNil(t, shop.cookie)

	rec = shop.get(t, "/api/cart")
	require.Equal(t, http.StatusOK, rec.Code)
	var payload cartPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, []cartLinePayload{{ID: "p1", Name: "Ring", Qty: 2, UnitPrice: "100", LineTotal: "200", Available: true}}, payload.Lines)
	require.Equal(t, "200", payload.Total)
	require.Equal(t, "https://www.paypal.me/YourPayPalName/200", payload.PaymentLink.Href)

	before := shop.cookie.Value
	rec = shop.post(t, "/cart/add", url.Values{"id": {"missing"}, "return": {"/shop.html"}})
	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Product not found", doc.Find(`[role="alert"]`).Text())
	require.Equal(t, "2", doc.Find("#cartCount").Text())
	require.Equal(t, before, shop.cookie.Value)

	rec = shop.post(t, "/cart/remove", url.Values{"id": {"p1"}, "return": {"/shop.html?cart=open"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/shop.html", rec.Header().Get("Location"))

	rec = shop.get(t, "/shop.html?cart=open")
	doc = testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "0", doc.Find("#cartCount").Text())
	require.Equal(t, "Rs 0", doc.Find("#cartTotal").Text())
	require.Equal(t, "Pay with PayPal", doc.Find("#paypalLink").Text())
	require.False(t, doc.Find("#cartModal").HasClass("hidden"))

	rec = shop.post(t, "/checkout/whatsapp", url.Values{"return": {"/shop.html"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	doc = testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Cart empty", doc.Find(`[role="alert"]`).Text())
}

func TestQuantityAndClear(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())

	shop.post(t, "/cart/add", url.Values{"id": {"p1"}})
	rec := shop.post(t, "/cart/quantity", url.Values{"id": {"p1"}, "qty": {"0"}, "return": {"/"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = shop.get(t, "/")
	require.Equal(t, "1", testutil.ParseHTML(t, rec.Body.Bytes()).Find("#cartCount").Text())

	shop.post(t, "/cart/quantity", url.Values{"id": {"p1"}, "qty": {"7"}})
	rec = shop.get(t, "/")
	require.Equal(t, "7", testutil.ParseHTML(t, rec.Body.Bytes()).Find("#cartCount").Text())

	shop.post(t, "/cart/clear", url.Values{"return": {"/"}})
	rec = shop.get(t, "/")
	require.Equal(t, "0", testutil.ParseHTML(t, rec.Body.Bytes()).Find("#cartCount").Text())
}

func TestHugeQuantitiesSaturate(t *testing.T) {
	products := catalog.New([]catalog.Product{{ID: "p1", Name: "Ring", Price: pricing.FromMajor(100)}})
	shop := newTestShop(t, products)

	for i := 0; i < 2; i++ {
		rec := shop.post(t, "/cart/add", url.Values{"id": {"p1"}, "qty": {"9223372036854775807"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec := shop.get(t, "/api/cart")
	var payload cartPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Lines, 1)
	require.Equal(t, cart.MaxQuantity, payload.Lines[0].Qty)
	require.Equal(t, "99900", payload.Total)
	require.Equal(t, "https://www.paypal.me/YourPayPalName/99900", payload.PaymentLink.Href)
}

func TestOversizedCartIsRefused(t *testing.T) {
	items := make([]catalog.Product, 0, 200)
	for i := 0; i < 200; i++ {
		items = append(items, catalog.Product{
			ID:    fmt.Sprintf("moonstone-silver-ring-handmade-%04d", i),
			Name:  "Ring",
			Price: pricing.FromMajor(10),
		})
	}
	shop := newTestShop(t, catalog.New(items))

	var refused *httptest.ResponseRecorder
	added := 0
	for _, p := range items {
		before := shop.cookie
		rec := shop.post(t, "/cart/add", url.Values{"id": {p.ID}, "return": {"/shop.html"}})
		if rec.Code == http.StatusRequestEntityTooLarge {
			refused = rec
			require.Equal(t, before, shop.cookie)
			break
		}
		require.Equal(t, http.StatusSeeOther, rec.Code)
		added++
	}
	require.NotNil(t, refused)
	require.Greater(t, added, 20)

	doc := testutil.ParseHTML(t, refused.Body.Bytes())
	require.Contains(t, doc.Find(`[role="alert"]`).Text(), "Your cart is full")
	require.Equal(t, strconv.Itoa(added), doc.Find("#cartCount").Text())

	rec := shop.get(t, "/api/cart")
	var payload cartPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, added, payload.Count)
}

func TestBuyNowOpensCart(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())

	rec := shop.post(t, "/cart/buy", url.Values{"id": {"p2"}, "return": {"/product.html?id=p2"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/product.html?cart=open&id=p2", rec.Header().Get("Location"))

	rec = shop.get(t, rec.Header().Get("Location"))
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.False(t, doc.Find("#cartModal").HasClass("hidden"))
	require.Equal(t, 1, doc.Find("#cartItems .cart-row").Length())
	require.Equal(t, "Rs 49.50", doc.Find("#cartTotal").Text())
}

func TestCheckoutRedirectsToWhatsApp(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())
	shop.post(t, "/cart/add", url.Values{"id": {"p1"}, "qty": {"2"}})

	rec := shop.post(t, "/checkout/whatsapp", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "01TESTREF", rec.Header().Get("X-Checkout-Reference"))

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "wa.me", loc.Host)
	require.Equal(t, "/977XXXXXXXXX", loc.Path)
	require.Equal(t, "Hello, I want to order:\n- Moonstone Ring x 2 = Rs 200\nTotal: Rs 200\nName: \nAddress: \nPayment method: ", loc.Query().Get("text"))
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())
	shop.post(t, "/cart/add", url.Values{"id": {"p1"}, "qty": {"3"}})
	require.NotNil(t, shop.cookie)

	forged := middleware.NewCookieCodec("attacker").Encode(`[{"id":"p1","qty":99}]`)
	shop.cookie = &http.Cookie{Name: cart.StorageKey, Value: forged}
	rec := shop.get(t, "/")
	require.Equal(t, "0", testutil.ParseHTML(t, rec.Body.Bytes()).Find("#cartCount").Text())

	shop.cookie = &http.Cookie{Name: cart.StorageKey, Value: "garbage"}
	rec = shop.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", testutil.ParseHTML(t, rec.Body.Bytes()).Find("#cartCount").Text())
}

func TestUnknownRoutes(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())

	rec := shop.get(t, "/about.html")
	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Page not found", doc.Find(".not-found h2").Text())
	require.Equal(t, "unknown", doc.Find("body").AttrOr("data-route", ""))

	rec = shop.get(t, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "route_not_found", body["error"])

	rec = shop.get(t, "/cart/add")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRenderedProductFieldsAreEscaped(t *testing.T) {
	products := catalog.New([]catalog.Product{{
		ID:          "x1",
		Name:        `<script>alert("name")</script>`,
		Description: `<img src=x onerror=alert(1)>`,
		Price:       pricing.FromMajor(5),
	}})
	shop := newTestShop(t, products)

	rec := shop.get(t, "/shop.html")
	body := rec.Body.String()
	require.NotContains(t, body, `<script>alert("name")`)
	require.NotContains(t, body, `<img src=x onerror`)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, `<script>alert("name")</script>`, doc.Find("#productsGrid h4").Text())
}

func TestUnsafeReturnGoesHome(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())
	for _, target := range []string{"https://evil.example/", "//evil.example", "/\\evil.example", ""} {
		rec := shop.post(t, "/cart/add", url.Values{"id": {"p1"}, "return": {target}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"), "return %q", target)
	}
}

func TestHealthz(t *testing.T) {
	shop := newTestShop(t, testutil.Catalog())
	rec := shop.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 3, body["products"])
}

func TestRecoveryRendersErrorPage(t *testing.T) {
	products := testutil.Catalog()
	svc, err := checkout.NewService(checkout.ServiceDeps{Catalog: func() *catalog.Catalog { return products }})
	require.NoError(t, err)
	shop, err := NewStorefront(StorefrontDeps{
		Catalog:  func() *catalog.Catalog { return products },
		Cookies:  middleware.NewCookieCodec(""),
		Checkout: svc,
	})
	require.NoError(t, err)

	router := NewRouter(
		WithMiddlewares(observability.RecoveryMiddleware(nil, shop.RenderPanic)),
		WithPageRoutes(func(r chi.Router) {
			r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
		}),
		WithAPIRoutes(func(r chi.Router) {
			r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
		}),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Something went wrong")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestNewStorefrontValidatesDeps(t *testing.T) {
	_, err := NewStorefront(StorefrontDeps{})
	require.ErrorIs(t, err, errCatalogRequired)
	_, err = NewStorefront(StorefrontDeps{Catalog: catalog.Empty})
	require.ErrorIs(t, err, errCookiesRequired)
	_, err = NewStorefront(StorefrontDeps{Catalog: catalog.Empty, Cookies: middleware.NewCookieCodec("")})
	require.ErrorIs(t, err, errCheckoutRequired)
}
