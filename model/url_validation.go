package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URL validation errors
var (
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme - only HTTP and HTTPS are allowed")
	ErrPrivateIPBlocked  = errors.New("private IP addresses and localhost are blocked for security")
	ErrMissingHost       = errors.New("URL must have a valid host")
	ErrEmptyURL          = errors.New("URL cannot be empty")
)

// ValidateArticleURL validates an article URL before the recovery
// pipeline fetches it. Checks scheme and host, and optionally blocks
// private IPs/localhost so an agent-supplied URL cannot be used for
// SSRF against internal services.
func ValidateArticleURL(rawURL string, allowPrivateIPs bool) error {
	if rawURL == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if err := validateScheme(u.Scheme); err != nil {
		return err
	}

	if u.Host == "" {
		return ErrMissingHost
	}

	if !allowPrivateIPs {
		if err := validateHost(u.Host); err != nil {
			return err
		}
	}

	return nil
}

// validateScheme blocks schemes like file://, ftp:// and data://.
func validateScheme(scheme string) error {
	scheme = strings.ToLower(scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsupportedScheme
	}
	return nil
}

// validateHost checks if the host resolves to private IP ranges or
// localhost. Hosts that fail to resolve are allowed through and fail
// later at request time.
func validateHost(host string) error {
	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		hostname = host
	}

	if isLocalhost(hostname) {
		return ErrPrivateIPBlocked
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIPBlocked
		}
	}

	return nil
}

// isLocalhost checks for common localhost patterns
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)

	switch hostname {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}

	return strings.HasPrefix(hostname, "127.")
}

// isPrivateIP checks if an IP address is in a private range
func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10: // 10.0.0.0/8
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31: // 172.16.0.0/12
			return true
		case ip4[0] == 192 && ip4[1] == 168: // 192.168.0.0/16
			return true
		case ip4[0] == 169 && ip4[1] == 254: // link-local
			return true
		case ip4[0] == 127: // loopback
			return true
		}
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	// IPv6 unique local addresses (fc00::/7)
	if len(ip) == 16 && (ip[0]&0xfe) == 0xfc {
		return true
	}

	return false
}
