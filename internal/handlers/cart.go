package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
	"github.com/MoonsunCreations/Moonsun-Store/internal/middleware"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/httpx"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/observability"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
	"github.com/MoonsunCreations/Moonsun-Store/internal/view"
)

// cartRequest is the parsed body of a cart form post.
type cartRequest struct {
	id       string
	qty      int
	returnTo string
}

func parseCartForm(w http.ResponseWriter, r *http.Request) (cartRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	if err := r.ParseForm(); err != nil {
		return cartRequest{}, err
	}
	return cartRequest{
		id:       strings.TrimSpace(r.PostForm.Get("id")),
		qty:      cart.ParseQuantity(r.PostForm.Get("qty")),
		returnTo: safeReturn(r.PostForm.Get("return")),
	}, nil
}

// session opens the visitor's cart against products and records every mutation.
func (s *Storefront) session(w http.ResponseWriter, r *http.Request, products *catalog.Catalog) *cart.Session {
	ctx := r.Context()
	logger := observability.FromContext(ctx)
	return cart.Open(s.cookies.Store(w, r), products, cart.WithObserver(func(op string, c cart.Cart) {
		s.metrics.Mutation(ctx, op)
		logger.Debug("cart updated", zap.String("op", op), zap.Int("lines", c.Len()), zap.Int("items", c.Count()))
	}))
}

func (s *Storefront) addToCart(w http.ResponseWriter, r *http.Request) {
	req, err := parseCartForm(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	products := s.catalog()
	sess := s.session(w, r, products)
	if err := sess.AddItem(req.id, req.qty); err != nil {
		s.cartError(w, r, products, sess.Cart(), req, err)
		return
	}
	http.Redirect(w, r, req.returnTo, http.StatusSeeOther)
}

// buyNow adds one unit and sends the visitor back with the cart open.
func (s *Storefront) buyNow(w http.ResponseWriter, r *http.Request) {
	req, err := parseCartForm(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	products := s.catalog()
	sess := s.session(w, r, products)
	if err := sess.AddItem(req.id, 1); err != nil {
		s.cartError(w, r, products, sess.Cart(), req, err)
		return
	}
	http.Redirect(w, r, view.WithCartOpen(req.returnTo), http.StatusSeeOther)
}

func (s *Storefront) removeFromCart(w http.ResponseWriter, r *http.Request) {
	req, err := parseCartForm(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	products := s.catalog()
	sess := s.session(w, r, products)
	if err := sess.RemoveItem(req.id); err != nil {
		s.cartError(w, r, products, sess.Cart(), req, err)
		return
	}
	http.Redirect(w, r, req.returnTo, http.StatusSeeOther)
}

func (s *Storefront) changeQuantity(w http.ResponseWriter, r *http.Request) {
	req, err := parseCartForm(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	products := s.catalog()
	sess := s.session(w, r, products)
	if err := sess.SetQuantity(req.id, req.qty); err != nil {
		s.cartError(w, r, products, sess.Cart(), req, err)
		return
	}
	http.Redirect(w, r, req.returnTo, http.StatusSeeOther)
}

func (s *Storefront) clearCart(w http.ResponseWriter, r *http.Request) {
	req, err := parseCartForm(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	products := s.catalog()
	sess := s.session(w, r, products)
	if err := sess.ClearCart(); err != nil {
		s.cartError(w, r, products, sess.Cart(), req, err)
		return
	}
	http.Redirect(w, r, req.returnTo, http.StatusSeeOther)
}

// cartError renders the alert page for a failed mutation. The stored cart is untouched.
func (s *Storefront) cartError(w http.ResponseWriter, r *http.Request, products *catalog.Catalog, c cart.Cart, req cartRequest, err error) {
	logger := observability.FromContext(r.Context())
	if errors.Is(err, cart.ErrProductNotFound) {
		logger.Info("cart add rejected", zap.String("product_id", observability.SanitizeProductID(req.id)))
		s.render(w, products, c, pageContent{
			title:  "Product not found",
			route:  view.RouteUnknown,
			main:   view.NotFound(),
			alert:  view.Alert(view.ToneError, "Product not found"),
			status: http.StatusNotFound,
		}, req.returnTo, false)
		return
	}
	if errors.Is(err, middleware.ErrCookieTooLarge) {
		logger.Warn("cart too large to persist", zap.Int("lines", c.Len()), zap.Error(err))
		s.render(w, products, c, pageContent{
			title:  "Cart full",
			route:  view.RouteUnknown,
			main:   view.ShopContent(products, s.money, "/shop.html"),
			alert:  view.Alert(view.ToneError, "Your cart is full. Remove an item before adding another."),
			status: http.StatusRequestEntityTooLarge,
		}, req.returnTo, false)
		return
	}
	logger.Error("cart update failed", zap.Error(err))
	s.render(w, products, c, pageContent{
		title:  "Error",
		route:  view.RouteUnknown,
		alert:  view.Alert(view.ToneError, "Your cart could not be saved. Please try again."),
		status: http.StatusInternalServerError,
	}, req.returnTo, false)
}

func (s *Storefront) checkoutWhatsApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products := s.catalog()
	c := cart.Restore(s.cookies.Store(w, r))
	returnTo := "/"
	if err := r.ParseForm(); err == nil {
		returnTo = safeReturn(r.PostForm.Get("return"))
	}

	handoff, err := s.checkout.StartWhatsApp(ctx, c)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			s.metrics.Checkout(ctx, "whatsapp", "empty")
			s.render(w, products, c, pageContent{
				title:  "Cart empty",
				route:  view.RouteUnknown,
				main:   view.ShopContent(products, s.money, "/shop.html"),
				alert:  view.Alert(view.ToneError, "Cart empty"),
				status: http.StatusConflict,
			}, returnTo, false)
			return
		}
		s.metrics.Checkout(ctx, "whatsapp", "error")
		observability.FromContext(ctx).Error("checkout failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.metrics.Checkout(ctx, "whatsapp", "ok")
	observability.FromContext(ctx).Info("checkout handoff", zap.String("reference", handoff.Reference))
	w.Header().Set("X-Checkout-Reference", handoff.Reference)
	http.Redirect(w, r, handoff.URL, http.StatusSeeOther)
}

// cartLinePayload is one line of the JSON cart snapshot.
type cartLinePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unitPrice,omitempty"`
	LineTotal string `json:"lineTotal"`
	Available bool   `json:"available"`
}

type paymentLinkPayload struct {
	Href   string `json:"href"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type cartPayload struct {
	Lines        []cartLinePayload  `json:"lines"`
	Count        int                `json:"count"`
	Total        string             `json:"total"`
	TotalDisplay string             `json:"totalDisplay"`
	PaymentLink  paymentLinkPayload `json:"paymentLink"`
}

func (s *Storefront) getCartJSON(w http.ResponseWriter, r *http.Request) {
	if s.cookies == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_unavailable", "cart is unavailable", http.StatusServiceUnavailable))
		return
	}
	products := s.catalog()
	c := cart.Restore(s.cookies.Store(w, r))
	total := pricing.CartTotal(products, c)
	link := s.checkout.PaymentLink(total)

	payload := cartPayload{
		Lines:        make([]cartLinePayload, 0, c.Len()),
		Count:        c.Count(),
		Total:        total.String(),
		TotalDisplay: s.money.Format(total),
		PaymentLink:  paymentLinkPayload{Href: link.Href, Label: link.Label, Active: link.Active},
	}
	for _, line := range c.Lines() {
		entry := cartLinePayload{ID: line.ID, Qty: line.Qty, LineTotal: pricing.LineTotal(products, line).String()}
		if p, ok := products.Find(line.ID); ok {
			entry.Name = p.Name
			entry.UnitPrice = p.Price.String()
			entry.Available = true
		}
		payload.Lines = append(payload.Lines, entry)
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// safeReturn keeps redirects on this site. Anything else goes home.
func safeReturn(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return view.WithoutCart(raw)
}
