package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, remote, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header http.Header
		want   string
	}{
		{"remote addr", "192.168.1.1:12345", nil, "192.168.1.1"},
		{"forwarded for wins", "192.168.1.1:12345", http.Header{"X-Forwarded-For": {"203.0.113.1, 192.168.1.1"}}, "203.0.113.1"},
		{"real ip fallback", "192.168.1.1:12345", http.Header{"X-Real-Ip": {"203.0.113.2"}}, "203.0.113.2"},
		{"unparseable remote", "garbage", nil, "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header[k] = v
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extract := httpx.FormFieldKeyExtractor("client_id")

	get := httptest.NewRequest(http.MethodGet, "/?client_id=game-a", nil)
	require.Equal(t, "game-a", extract(get))

	form := url.Values{"client_id": {"game-b"}}
	post := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "game-b", extract(post))

	require.Empty(t, extract(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestCompositeKeyExtractorSkipsEmpty(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.HeaderKeyExtractor("X-Client-ID"),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req))

	req.Header.Set("X-Client-ID", "game-a")
	require.Equal(t, "192.168.1.1:game-a", extract(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}

	t.Run("blocks after burst and sets headers", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler)

		for i := range 3 {
			rec := serve(h, "10.0.0.1:1", "/", nil)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		rec := serve(h, "10.0.0.1:1", "/", nil)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler)
		for range 3 {
			serve(h, "10.0.0.2:1", "/", nil)
		}
		require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.2:1", "/", nil).Code)
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.3:1", "/", nil).Code)
	})

	t.Run("missing key passes through", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })(okHandler)
		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, "10.0.0.4:1", "/", nil).Code)
		}
	})

	t.Run("ip and form field", func(t *testing.T) {
		h := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "client_id")(okHandler)
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.5:1", "/?client_id=a", nil).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.5:1", "/?client_id=a", nil).Code)
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.5:1", "/?client_id=b", nil).Code)
	})

	t.Run("ip and header", func(t *testing.T) {
		h := httpx.RateLimitByIPAndHeader(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "X-Client-ID")(okHandler)
		a := http.Header{"X-Client-Id": {"a"}}
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.6:1", "/", a).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.6:1", "/", a).Code)
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.6:1", "/", http.Header{"X-Client-Id": {"b"}}).Code)
	})
}

func TestDefaultRateLimitsAreOrdered(t *testing.T) {
	l := httpx.DefaultRateLimits()

	for _, c := range []httpx.RateLimitConfig{l.Strict, l.Moderate, l.Lenient, l.Public} {
		require.Positive(t, c.RequestsPerWindow)
		require.Positive(t, c.Burst)
		require.Greater(t, c.Window, time.Duration(0))
	}

	require.Less(t, l.Strict.RequestsPerWindow, l.Moderate.RequestsPerWindow)
	require.Less(t, l.Moderate.RequestsPerWindow, l.Lenient.RequestsPerWindow)
	require.Less(t, l.Lenient.RequestsPerWindow, l.Public.RequestsPerWindow)
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1_000_000, Window: time.Minute, Burst: 1000})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1"

	b.ResetTimer()
	for range b.N {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
