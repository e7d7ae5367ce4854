// Package potoken adapts the PO-Token attestation slot the Innertube
// client set's web-family clients carry: a pluggable Provider produces a
// token from request context, with file- and memory-backed caches keyed by
// the inputs that influence the result.
package potoken

import (
	"context"
	"time"
)

// Mode controls when a Provider is invoked.
type Mode int

const (
	// Off never calls the Provider; web-family requests go out without a
	// PO token (they may still succeed using the one scraped from the
	// watch page by the Extraction Session).
	Off Mode = iota
	// Auto calls the Provider only when the scraped token is missing.
	Auto
	// Force always calls the Provider, overriding any scraped token.
	Force
)

// Input carries the parameters a Provider needs to attest a request.
type Input struct {
	UserAgent        string
	PageURL          string
	ClientName       string
	ClientVersion    string
	VisitorID        string
	AdditionalParams map[string]string
}

// Output is a Provider's result, applied to the Innertube request's
// serviceIntegrityDimensions.poToken field.
type Output struct {
	Token     string
	ExpiresAt time.Time
	Metadata  map[string]string
}

// Provider is an external PO-Token attestation backend.
type Provider interface {
	Fetch(ctx context.Context, input Input) (Output, error)
}

// Cache stores Provider outputs keyed by input characteristics.
type Cache interface {
	Get(key string) (Output, bool)
	Set(key string, value Output)
}

// KeyFromInput derives a cache key from the Input fields that influence the
// attestation result.
func KeyFromInput(in Input) string {
	return in.UserAgent + "|" + in.ClientName + "|" + in.ClientVersion + "|" + in.VisitorID
}
