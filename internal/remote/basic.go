// ABOUTME: Direct-credentials transport sending HTTP Basic auth on every request
// ABOUTME: No session state; a 401 is immediately a permanent AuthError

package remote

import "net/http"

// NewBasic creates the direct-credentials transport. Every request carries
// the credentials; there is no login round-trip and no re-auth path.
func NewBasic(baseURL, username, password string) API {
	return &client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
		decorate: func(req *http.Request) {
			req.SetBasicAuth(username, password)
		},
	}
}
