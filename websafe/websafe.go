// Package websafe provides URL safety checks (SSRF prevention) and bounded
// I/O helpers for the outbound HTTP surface of fouille.
//
// Every URL the service fetches (robots.txt documents, result pages,
// provider endpoints) passes through ValidateURL, including each redirect
// hop.
package websafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxResponseBody is the default cap for HTTP response body reads (2 MiB).
const MaxResponseBody int64 = 2 << 20

// ErrSSRF is returned when a URL resolves to a private or loopback address.
var ErrSSRF = errors.New("websafe: URL targets a private or loopback address")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("websafe: only http and https schemes are allowed")

// ErrResponseTooLarge is returned when a response body exceeds its cap.
var ErrResponseTooLarge = errors.New("websafe: response body too large")

// ValidateURL checks that rawURL uses http/https, has a hostname, and does
// not point at a private or loopback IP. Hostnames are resolved so internal
// hosts hiding behind DNS are caught too. A DNS failure is let through:
// the connection attempt will fail on its own and a temporarily
// unresolvable public host should not be rejected here.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("websafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("websafe: URL has no host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isForbiddenIP(ip) {
			return ErrSSRF
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isForbiddenIP(ip) {
			return ErrSSRF
		}
	}
	return nil
}

// AllowAll is a validator that accepts every URL. Intended for tests and
// for deployments that deliberately crawl internal networks.
func AllowAll(string) error { return nil }

// ReadAllLimited reads at most maxBytes from r, returning ErrResponseTooLarge
// when the stream holds more.
func ReadAllLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

func isForbiddenIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
