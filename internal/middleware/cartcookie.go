package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultCookieMaxAge = 30 * 24 * time.Hour

// MaxCookieSize bounds name plus encoded value. Browsers drop cookies past
// roughly 4096 bytes including attributes.
const MaxCookieSize = 3800

// ErrCookieTooLarge is returned by CookieStore.Set when the encoded value
// would not survive in a browser.
var ErrCookieTooLarge = errors.New("cookie too large")

// CookieCodec signs and verifies cart cookies. Values are base64url encoded;
// with a secret the payload is followed by "." and an HMAC-SHA256 signature.
type CookieCodec struct {
	secret []byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// CookieOption customises a CookieCodec.
type CookieOption func(*CookieCodec)

// WithMaxAge sets how long cart cookies live.
func WithMaxAge(d time.Duration) CookieOption {
	return func(c *CookieCodec) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithSecureCookies marks cookies Secure.
func WithSecureCookies(secure bool) CookieOption {
	return func(c *CookieCodec) {
		c.secure = secure
	}
}

// NewCookieCodec builds a codec. An empty secret stores unsigned values.
func NewCookieCodec(secret string, opts ...CookieOption) *CookieCodec {
	c := &CookieCodec{
		maxAge: defaultCookieMaxAge,
		now:    time.Now,
	}
	if s := strings.TrimSpace(secret); s != "" {
		c.secret = []byte(s)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Signed reports whether cookies carry a signature.
func (c *CookieCodec) Signed() bool { return len(c.secret) > 0 }

// Encode produces the cookie value for payload.
func (c *CookieCodec) Encode(payload string) string {
	b := []byte(payload)
	val := base64.RawURLEncoding.EncodeToString(b)
	if !c.Signed() {
		return val
	}
	return val + "." + base64.RawURLEncoding.EncodeToString(c.sign(b))
}

// Decode verifies and decodes a cookie value. Tampered or malformed values report false.
func (c *CookieCodec) Decode(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	payloadPart, sigPart, hasSig := strings.Cut(value, ".")
	if c.Signed() != hasSig {
		return "", false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return "", false
	}
	if hasSig {
		sig, err := base64.RawURLEncoding.DecodeString(sigPart)
		if err != nil || !hmac.Equal(sig, c.sign(payload)) {
			return "", false
		}
	}
	return string(payload), true
}

// Store returns a per-request key/value store backed by cookies on r and w.
func (c *CookieCodec) Store(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{codec: c, w: w, r: r, written: map[string]string{}}
}

func (c *CookieCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// CookieStore satisfies cart.Store for a single request. Set writes the
// cookie immediately, so it must be called before the response is written.
type CookieStore struct {
	codec   *CookieCodec
	w       http.ResponseWriter
	r       *http.Request
	written map[string]string
}

// Get returns the verified value of the cookie named key.
func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.written[key]; ok {
		return v, true
	}
	ck, err := s.r.Cookie(key)
	if err != nil {
		return "", false
	}
	return s.codec.Decode(ck.Value)
}

// Set writes the cookie named key. Values whose cookie would exceed
// MaxCookieSize are refused and the existing cookie is left alone.
func (s *CookieStore) Set(key, value string) error {
	encoded := s.codec.Encode(value)
	if size := len(key) + len(encoded); size > MaxCookieSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrCookieTooLarge, key, size, MaxCookieSize)
	}
	s.written[key] = value
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.codec.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.codec.maxAge / time.Second),
		Expires:  s.codec.now().Add(s.codec.maxAge),
	})
	return nil
}
