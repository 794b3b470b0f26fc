package opcall

import (
	"fmt"
	"net/url"
)

// Endpoint is a resolved base URI for an operation.
type Endpoint struct {
	URL *url.URL

	// HostImmutable disallows host-prefix expansion for this endpoint,
	// e.g. when the caller pinned a VPC or localstack-style host.
	HostImmutable bool
}

// ResolveEndpoint parses a base URI into an Endpoint.
func ResolveEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("opcall: invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Endpoint{}, fmt.Errorf("opcall: endpoint %q must be absolute with scheme and host", raw)
	}
	return Endpoint{URL: u}, nil
}

// Immutable returns a copy of the endpoint with host-prefix expansion
// disabled.
func (e Endpoint) Immutable() Endpoint {
	e.HostImmutable = true
	return e
}
