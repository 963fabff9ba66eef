// Package admission implements the admission layer (C6): trusted-proxy
// client identification, per-(client,route) rate limiting, and request
// backpressure, composed in the order backpressure -> rate-limit.
package admission

import (
	"net"
	"net/http"
	"strings"
)

// trustedProxies is the default set a directly-connected peer must belong
// to before X-Forwarded-For/X-Real-IP are trusted: RFC1918 + loopback +
// fd00::/8, per spec.md §4.5.
var trustedProxies = mustParseCIDRs([]string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"::1/128",
	"fd00::/8",
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

func isTrustedProxy(ip net.IP) bool {
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP computes "the IP that matters for rate limiting and audit" per
// spec.md §4.5: if the directly connected peer is a trusted proxy, prefer
// the first X-Forwarded-For value, else X-Real-IP, else the peer address.
// An untrusted peer's forwarded headers are ignored entirely — they are
// attacker-controlled.
func ClientIP(r *http.Request) string {
	peerHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peerHost = r.RemoteAddr
	}
	peerIP := net.ParseIP(peerHost)
	if peerIP == nil {
		return "unknown"
	}

	if !isTrustedProxy(peerIP) {
		return peerIP.String()
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		if ip := net.ParseIP(strings.TrimSpace(real)); ip != nil {
			return ip.String()
		}
	}
	return peerIP.String()
}

// ClientInfo also carries the user agent, for audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func GetClientInfo(r *http.Request) ClientInfo {
	return ClientInfo{IP: ClientIP(r), UserAgent: r.UserAgent()}
}
