package shield

import (
	"net/url"

	"github.com/fathomlabs/fathom/internal/net/ssrf"
)

// ValidateURL checks that rawURL is https (or http for local testing),
// well-formed, and does not target a private/internal address.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return urlSchemeError(u.Scheme)
	}
	return ssrf.ValidatePublicHostname(u.Hostname())
}

func urlSchemeError(scheme string) error {
	return &schemeError{scheme: scheme}
}

type schemeError struct{ scheme string }

func (e *schemeError) Error() string { return "shield: unsupported URL scheme " + e.scheme }
