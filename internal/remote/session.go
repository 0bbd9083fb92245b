// ABOUTME: App-session transport authenticating via a login form and a cookie jar
// ABOUTME: Logs in lazily on the first rejected request, re-logs in once on expiry

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// NewSession creates the cookie/app-session transport. Construction does no
// network I/O: the first request (or a request after session expiry) gets a
// 401, which triggers a form login under that request's context. The session
// cookie is held in the client's jar.
func NewSession(baseURL, username, password string) (API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	c.reauth = func(ctx context.Context) error {
		return login(ctx, c, username, password)
	}
	return c, nil
}

// login posts the credentials form and relies on the jar to capture the
// session cookie. A rejected login is a permanent AuthError.
func login(ctx context.Context, c *client, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/login"),
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Auth(fmt.Errorf("login rejected (status %d)", resp.StatusCode))
	default:
		return Transient(fmt.Errorf("login failed (status %d)", resp.StatusCode))
	}
}
