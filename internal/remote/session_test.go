// ABOUTME: Tests for the app-session transport
// ABOUTME: Covers lazy login, cookie reuse and the re-login-once-then-fail path

package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// sessionServer is a stub News server that hands out a session cookie on
// login and rejects API requests without it.
type sessionServer struct {
	logins  int
	session string
	mux     *http.ServeMux
}

func newSessionServer(t *testing.T) (*sessionServer, *httptest.Server) {
	t.Helper()
	s := &sessionServer{session: "sess-1", mux: http.NewServeMux()}

	s.mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.logins++
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: s.session})
	})
	s.mux.HandleFunc("/feeds", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil || c.Value != s.session {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"feeds":[]}`))
	})

	server := httptest.NewServer(s.mux)
	t.Cleanup(server.Close)
	return s, server
}

func TestSessionLazyLoginAndCookieReuse(t *testing.T) {
	state, server := newSessionServer(t)

	api, err := NewSession(server.URL, "alice", "secret")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if state.logins != 0 {
		t.Fatalf("construction should not log in, got %d logins", state.logins)
	}

	for i := 0; i < 3; i++ {
		if _, err := api.ListFeeds(context.Background()); err != nil {
			t.Fatalf("ListFeeds failed: %v", err)
		}
	}
	if state.logins != 1 {
		t.Errorf("expected one login on first use, got %d", state.logins)
	}
}

func TestSessionRejectedCredentials(t *testing.T) {
	_, server := newSessionServer(t)

	api, err := NewSession(server.URL, "alice", "wrong")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	_, err = api.ListFeeds(context.Background())
	if !IsAuth(err) {
		t.Errorf("expected AuthError on rejected login, got %v", err)
	}
}

func TestSessionReloginOnceAfterExpiry(t *testing.T) {
	state, server := newSessionServer(t)

	api, err := NewSession(server.URL, "alice", "secret")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if _, err := api.ListFeeds(context.Background()); err != nil {
		t.Fatalf("ListFeeds failed: %v", err)
	}

	// Invalidate the session server-side. The next request gets a 401, the
	// transport re-logs in once and retries.
	state.session = "sess-2"
	if _, err := api.ListFeeds(context.Background()); err != nil {
		t.Fatalf("ListFeeds after expiry failed: %v", err)
	}
	if state.logins != 2 {
		t.Errorf("expected exactly one re-login, got %d total logins", state.logins)
	}
}

func TestSessionLoginUsesCallerContext(t *testing.T) {
	state, server := newSessionServer(t)

	api, err := NewSession(server.URL, "alice", "secret")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := api.ListFeeds(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
	if state.logins != 0 {
		t.Errorf("canceled request should not complete a login, got %d", state.logins)
	}

	if _, err := api.ListFeeds(context.Background()); err != nil {
		t.Fatalf("ListFeeds after cancel failed: %v", err)
	}
}
