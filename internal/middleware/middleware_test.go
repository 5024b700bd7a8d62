package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieCodecSignedRoundTrip(t *testing.T) {
	codec := NewCookieCodec("s3cret")
	value := codec.Encode(`[{"id":"p1","qty":2}]`)
	require.Contains(t, value, ".")

	got, ok := codec.Decode(value)
	require.True(t, ok)
	require.Equal(t, `[{"id":"p1","qty":2}]`, got)
}

func TestCookieCodecRejectsTampering(t *testing.T) {
	codec := NewCookieCodec("s3cret")
	value := codec.Encode(`[{"id":"p1","qty":2}]`)
	payload, sig, _ := strings.Cut(value, ".")

	forged := NewCookieCodec("other").Encode(`[{"id":"p1","qty":99}]`)
	cases := []string{
		"",
		payload,
		payload + ".",
		payload + "." + sig + "x",
		"!!!." + sig,
		forged,
	}
	for _, tc := range cases {
		_, ok := codec.Decode(tc)
		require.Falsef(t, ok, "expected %q to be rejected", tc)
	}
}

func TestCookieCodecUnsigned(t *testing.T) {
	codec := NewCookieCodec("")
	require.False(t, codec.Signed())
	value := codec.Encode("[]")
	require.NotContains(t, value, ".")
	got, ok := codec.Decode(value)
	require.True(t, ok)
	require.Equal(t, "[]", got)

	_, ok = codec.Decode(NewCookieCodec("s3cret").Encode("[]"))
	require.False(t, ok)
}

func TestCookieStore(t *testing.T) {
	codec := NewCookieCodec("s3cret", WithSecureCookies(true))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	store := codec.Store(rec, req)
	_, ok := store.Get("cart_v1")
	require.False(t, ok)

	require.NoError(t, store.Set("cart_v1", "[]"))
	got, ok := store.Get("cart_v1")
	require.True(t, ok)
	require.Equal(t, "[]", got)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "cart_v1", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	got, ok = codec.Store(httptest.NewRecorder(), next).Get("cart_v1")
	require.True(t, ok)
	require.Equal(t, "[]", got)
}

func TestCookieStoreRefusesOversizedValue(t *testing.T) {
	codec := NewCookieCodec("s3cret")
	rec := httptest.NewRecorder()
	store := codec.Store(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, store.Set("cart_v1", "[]"))

	err := store.Set("cart_v1", strings.Repeat("x", MaxCookieSize))
	require.ErrorIs(t, err, ErrCookieTooLarge)

	got, ok := store.Get("cart_v1")
	require.True(t, ok)
	require.Equal(t, "[]", got)
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestStaticWithCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{}"), 0o644))
	h := StaticWithCache("/assets", dir, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/styles.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	req := httptest.NewRequest(http.MethodGet, "/assets/styles.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
