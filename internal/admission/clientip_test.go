package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestClientIPTrustedProxyForwarding exercises spec.md §8 S6: a spoofed
// X-Forwarded-For from an untrusted peer must be ignored.
func TestClientIPTrustedProxyForwarding(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "untrusted peer forwarded header ignored",
			remoteAddr: "203.0.113.9:1234",
			xff:        "198.51.100.5",
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy forwarded header honored",
			remoteAddr: "10.0.0.5:1234",
			xff:        "198.51.100.5, 10.0.0.5",
			want:       "198.51.100.5",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = c.remoteAddr
			if c.xff != "" {
				r.Header.Set("X-Forwarded-For", c.xff)
			}
			got := ClientIP(r)
			if got != c.want {
				t.Errorf("ClientIP() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:1234"
	r.Header.Set("X-Real-IP", "198.51.100.9")
	if got := ClientIP(r); got != "198.51.100.9" {
		t.Errorf("ClientIP() = %q, want 198.51.100.9", got)
	}
}
