package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// StateSigner
// ---------------------------------------------------------------------------

func TestStateSigner_RoundTrip(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	state, err := s.Issue(GitHub)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := s.Verify(state, GitHub); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestStateSigner_Rejects(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	state, _ := s.Issue(GitHub)

	if err := s.Verify(state, Google); err == nil {
		t.Fatal("expected provider mismatch to fail")
	}
	if err := NewStateSigner("other", time.Minute).Verify(state, GitHub); err == nil {
		t.Fatal("expected wrong secret to fail")
	}
	if err := s.Verify("garbage", GitHub); err == nil {
		t.Fatal("expected malformed state to fail")
	}

	expired := NewStateSigner("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.Issue(GitHub)
	if err := s.Verify(old, GitHub); err == nil {
		t.Fatal("expected expired state to fail")
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_OnlyConfiguredProviders(t *testing.T) {
	r := NewRegistry(map[string]ClientConfig{
		Google:    {ClientID: "g", ClientSecret: "s", RedirectURL: "http://localhost/cb"},
		Facebook:  {},
		"twitter": {ClientID: "t"},
	})

	if got := r.Names(); len(got) != 1 || got[0] != Google {
		t.Fatalf("Names = %v, want [google]", got)
	}
	p, err := r.Provider(Google)
	if err != nil {
		t.Fatalf("Provider(google): %v", err)
	}
	url := p.AuthCodeURL("xyz")
	if !strings.Contains(url, "state=xyz") || !strings.Contains(url, "client_id=g") {
		t.Fatalf("AuthCodeURL = %q", url)
	}
	for _, name := range []string{Facebook, "twitter", ""} {
		if _, err := r.Provider(name); !errors.Is(err, domain.ErrInvalidProvider) {
			t.Fatalf("Provider(%q) error = %v, want ErrInvalidProvider", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Provider against a fake OAuth server
// ---------------------------------------------------------------------------

func newFakeProvider(t *testing.T, p *Provider, mux *http.ServeMux) *Provider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})

	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userURL = srv.URL + "/user"
	return p
}

func requireBearer(w http.ResponseWriter, r *http.Request, token string) bool {
	if r.Header.Get("Authorization") != "Bearer "+token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func TestGoogle_UserFromCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r, "at-1") {
			return
		}
		_, _ = w.Write([]byte(`{"sub":"g-42","name":"Ada","email":"ada@example.com","picture":"https://img/ada.png"}`))
	})
	p := newFakeProvider(t, NewGoogle(ClientConfig{ClientID: "id", ClientSecret: "sec"}), mux)

	su, err := p.UserFromCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("UserFromCode: %v", err)
	}
	want := domain.SocialUser{Provider: Google, ID: "g-42", Name: "Ada", Email: "ada@example.com", Avatar: "https://img/ada.png"}
	if *su != want {
		t.Fatalf("user = %+v, want %+v", *su, want)
	}

	if _, err := p.UserFromCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected exchange failure")
	}
}

func TestFacebook_UserFromToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r, "fb-token") {
			return
		}
		_, _ = w.Write([]byte(`{"id":"fb-1","name":"Bob","email":"bob@example.com","picture":{"data":{"url":"https://img/bob.jpg"}}}`))
	})
	p := newFakeProvider(t, NewFacebook(ClientConfig{ClientID: "id"}), mux)

	su, err := p.UserFromToken(context.Background(), "fb-token")
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	if su.ID != "fb-1" || su.Avatar != "https://img/bob.jpg" || su.Provider != Facebook {
		t.Fatalf("user = %+v", su)
	}

	if _, err := p.UserFromToken(context.Background(), "wrong"); err == nil {
		t.Fatal("expected rejected token to fail")
	}
}

func TestGitHub_FallsBackToEmailsEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":9001,"login":"octo","name":"","email":null,"avatar_url":"https://img/octo"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`))
	})
	p := newFakeProvider(t, NewGitHub(ClientConfig{ClientID: "id"}), mux)
	emailsURL := p.userURL + "/emails"
	p.decode = func(ctx context.Context, client *http.Client, body []byte) (*domain.SocialUser, error) {
		return decodeGitHub(ctx, client, body, emailsURL)
	}

	su, err := p.UserFromToken(context.Background(), "gh")
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	if su.ID != "9001" || su.Name != "octo" || su.Email != "octo@example.com" {
		t.Fatalf("user = %+v", su)
	}
}

func TestProvider_MissingIDFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"x@example.com"}`))
	})
	p := newFakeProvider(t, NewGoogle(ClientConfig{ClientID: "id"}), mux)

	if _, err := p.UserFromToken(context.Background(), "t"); err == nil {
		t.Fatal("expected error for profile without id")
	}
}
