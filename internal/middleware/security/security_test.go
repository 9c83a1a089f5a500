package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{"direct connection", "203.0.113.9:5555", "", "", "203.0.113.9"},
		{"untrusted peer ignores forwarded header", "203.0.113.9:5555", "198.51.100.1", "", "203.0.113.9"},
		{"trusted proxy with XFF", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy with X-Real-IP", "127.0.0.1:80", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy with garbage XFF", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"unparseable remote addr", "garbage", "", "", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	suspicious := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/.env", nil),
		httptest.NewRequest(http.MethodGet, "/log?q=union+select", nil),
		httptest.NewRequest(http.MethodGet, "/log?q=union%20select", nil),
		httptest.NewRequest(http.MethodGet, "/log?q=%3Cscript%3Ealert(1)", nil),
		httptest.NewRequest(http.MethodGet, "/log?q=%3CSCRIPT%3E", nil),
		httptest.NewRequest("TRACE", "/", nil),
	}
	ua := httptest.NewRequest(http.MethodGet, "/", nil)
	ua.Header.Set("User-Agent", "sqlmap/1.7")
	suspicious = append(suspicious, ua)

	for _, r := range suspicious {
		if !d.DetectSuspiciousRequest(r) {
			t.Errorf("expected %s %s to be flagged", r.Method, r.URL)
		}
	}

	normal := httptest.NewRequest(http.MethodGet, "/insights?tz=Europe%2FRome", nil)
	normal.Header.Set("User-Agent", "Mozilla/5.0")
	if d.DetectSuspiciousRequest(normal) {
		t.Error("normal request flagged")
	}

	if got := d.GetMetrics().SuspiciousRequests; got != int64(len(suspicious)) {
		t.Errorf("SuspiciousRequests = %d, want %d", got, len(suspicious))
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, tlsReq)
	if rec.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Errorf("unexpected HSTS %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestAddTrustedProxyRejectsInvalidCIDR(t *testing.T) {
	if err := NewDetector().AddTrustedProxy("nope"); err == nil {
		t.Error("expected error")
	}
}
