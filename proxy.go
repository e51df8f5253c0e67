package oboidentity

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ErrUntrustedProxy is returned when identity headers arrive from a peer that
// is not a configured proxy.
var ErrUntrustedProxy = errors.New("identity headers from untrusted peer")

// WithTrustedProxies restricts the header login to requests whose direct peer
// address falls in one of the given addresses or CIDR ranges.
//
// SECURITY WARNING: without this option any client able to reach the header
// login can present its own x-forwarded-* headers. Leave it unset only when
// the network guarantees that the proxy is the sole caller.
//
// Example:
//
//	mw, err := oboidentity.New(
//	    oboidentity.WithResolver(resolver),
//	    oboidentity.WithHeaderAuthenticator(headerAuth),
//	    oboidentity.WithTrustedProxies("10.0.0.0/8", "127.0.0.1"),
//	)
func WithTrustedProxies(proxies ...string) Option {
	return func(m *Middleware) error {
		if len(proxies) == 0 {
			return errors.New("trusted proxies list cannot be empty")
		}
		prefixes, err := parseProxies(proxies)
		if err != nil {
			return err
		}
		m.trustedProxies = prefixes
		return nil
	}
}

func parseProxies(proxies []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(proxies))
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// fromTrustedProxy reports whether the request's direct peer may present
// identity headers. With no proxies configured every peer is trusted.
func (m *Middleware) fromTrustedProxy(r *http.Request) bool {
	if len(m.trustedProxies) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
