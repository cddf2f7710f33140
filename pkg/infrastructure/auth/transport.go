// Package auth decorates backend requests with the mobile client's headers
// and the session's bearer token.
package auth

import (
	"net/http"

	"golang.org/x/oauth2"
)

// OrganizationHeader carries the organization id returned by login.
const OrganizationHeader = "organization"

// HeaderTransport sets a fixed header set on every request.
type HeaderTransport struct {
	// Headers overwrite any value already present on the request.
	// A "Host" entry sets req.Host.
	Headers map[string]string

	// Base is the base RoundTripper used to make the actual HTTP requests.
	// If nil, http.DefaultTransport is used.
	Base http.RoundTripper
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	req2 := cloneRequest(req)
	for k, v := range t.Headers {
		if http.CanonicalHeaderKey(k) == "Host" {
			req2.Host = v
			continue
		}
		req2.Header.Set(k, v)
	}
	return base.RoundTrip(req2)
}

// NewTransport returns a RoundTripper that applies headers and then
// authenticates with token as a bearer credential.
func NewTransport(token string, headers map[string]string, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
		Base: &HeaderTransport{Headers: headers, Base: base},
	}
}

// cloneRequest returns a shallow copy of r with its own Header map.
func cloneRequest(r *http.Request) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.Header = make(http.Header, len(r.Header))
	for k, s := range r.Header {
		r2.Header[k] = append([]string(nil), s...)
	}
	return r2
}
