package cart

// Observer is notified after every persisted mutation with the operation
// name and the resulting cart.
type Observer func(op string, c Cart)

// Session binds a visitor's store to the catalog and persists after every mutation.
type Session struct {
	store     Store
	products  Finder
	cart      Cart
	observers []Observer
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithObserver registers a callback run after each persisted mutation.
func WithObserver(obs Observer) SessionOption {
	return func(s *Session) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// Open restores the cart held in store.
func Open(store Store, products Finder, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		products: products,
		cart:     Restore(store),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Cart returns the current cart.
func (s *Session) Cart() Cart { return s.cart }

// AddItem adds qty of id. Unknown products return ErrProductNotFound and nothing is persisted.
func (s *Session) AddItem(id string, qty int) error {
	next, err := s.cart.Add(s.products, id, qty)
	if err != nil {
		return err
	}
	return s.commit("add", next)
}

// RemoveItem deletes the line for id.
func (s *Session) RemoveItem(id string) error {
	return s.commit("remove", s.cart.Remove(id))
}

// SetQuantity replaces the quantity for id, clamped to at least one.
func (s *Session) SetQuantity(id string, qty int) error {
	return s.commit("set_quantity", s.cart.SetQuantity(id, qty))
}

// ClearCart empties the cart.
func (s *Session) ClearCart() error {
	return s.commit("clear", s.cart.Clear())
}

func (s *Session) commit(op string, next Cart) error {
	if err := Persist(s.store, next); err != nil {
		return err
	}
	s.cart = next
	for _, obs := range s.observers {
		obs(op, next)
	}
	return nil
}
