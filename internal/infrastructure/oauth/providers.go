package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	Google   = "google"
	Facebook = "facebook"
	GitHub   = "github"
)

// Supported lists the provider names the API accepts.
var Supported = []string{Google, Facebook, GitHub}

// ClientConfig holds the credentials of one provider application.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Registry resolves configured providers by name.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds providers for every entry with a client id. Unknown
// names are ignored.
func NewRegistry(clients map[string]ClientConfig) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}
	for name, cfg := range clients {
		if cfg.ClientID == "" {
			continue
		}
		var p *Provider
		switch name {
		case Google:
			p = NewGoogle(cfg)
		case Facebook:
			p = NewFacebook(cfg)
		case GitHub:
			p = NewGitHub(cfg)
		default:
			continue
		}
		r.providers[name] = p
	}
	return r
}

// Provider returns domain.ErrInvalidProvider for unsupported or unconfigured names.
func (r *Registry) Provider(name string) (ports.SocialProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidProvider, name)
	}
	return p, nil
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider exchanges codes and tokens with one OAuth2 provider and reads the
// user profile from its API.
type Provider struct {
	name     string
	config   *oauth2.Config
	userURL  string
	decode   func(ctx context.Context, client *http.Client, body []byte) (*domain.SocialUser, error)
	http     *http.Client
	authOpts []oauth2.AuthCodeOption
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, p.authOpts...)
}

func (p *Provider) UserFromCode(ctx context.Context, code string) (*domain.SocialUser, error) {
	ctx = p.withHTTPClient(ctx)
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return p.fetchUser(ctx, p.config.Client(ctx, tok))
}

func (p *Provider) UserFromToken(ctx context.Context, accessToken string) (*domain.SocialUser, error) {
	ctx = p.withHTTPClient(ctx)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	return p.fetchUser(ctx, client)
}

func (p *Provider) withHTTPClient(ctx context.Context) context.Context {
	if p.http == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.http)
}

func (p *Provider) fetchUser(ctx context.Context, client *http.Client) (*domain.SocialUser, error) {
	body, err := getJSON(ctx, client, p.userURL)
	if err != nil {
		return nil, err
	}
	su, err := p.decode(ctx, client, body)
	if err != nil {
		return nil, err
	}
	if su.ID == "" {
		return nil, fmt.Errorf("%s: missing user id in profile", p.name)
	}
	su.Provider = p.name
	return su, nil
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// NewGoogle configures Google OpenID Connect user info.
func NewGoogle(cfg ClientConfig) *Provider {
	return &Provider{
		name: Google,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "profile", "email"},
		},
		userURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		decode:  decodeGoogle,
	}
}

func decodeGoogle(_ context.Context, _ *http.Client, body []byte) (*domain.SocialUser, error) {
	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode google user: %w", err)
	}
	return &domain.SocialUser{ID: info.Sub, Name: info.Name, Email: info.Email, Avatar: info.Picture}, nil
}

// NewFacebook configures the Graph API profile.
func NewFacebook(cfg ClientConfig) *Provider {
	return &Provider{
		name: Facebook,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Facebook,
			Scopes:       []string{"email", "public_profile"},
		},
		userURL: "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
		decode:  decodeFacebook,
	}
}

func decodeFacebook(_ context.Context, _ *http.Client, body []byte) (*domain.SocialUser, error) {
	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode facebook user: %w", err)
	}
	return &domain.SocialUser{ID: info.ID, Name: info.Name, Email: info.Email, Avatar: info.Picture.Data.URL}, nil
}

// NewGitHub configures the GitHub REST API profile. Users with a private
// email are resolved through the emails endpoint.
func NewGitHub(cfg ClientConfig) *Provider {
	p := &Provider{
		name: GitHub,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user", "user:email"},
		},
		userURL: "https://api.github.com/user",
	}
	p.decode = func(ctx context.Context, client *http.Client, body []byte) (*domain.SocialUser, error) {
		return decodeGitHub(ctx, client, body, "https://api.github.com/user/emails")
	}
	return p
}

func decodeGitHub(ctx context.Context, client *http.Client, body []byte, emailsURL string) (*domain.SocialUser, error) {
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode github user: %w", err)
	}
	su := &domain.SocialUser{Name: info.Name, Email: info.Email, Avatar: info.AvatarURL}
	if info.ID != 0 {
		su.ID = strconv.FormatInt(info.ID, 10)
	}
	if su.Name == "" {
		su.Name = info.Login
	}
	if su.Email != "" {
		return su, nil
	}

	raw, err := getJSON(ctx, client, emailsURL)
	if err != nil {
		return nil, err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, fmt.Errorf("decode github emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			su.Email = e.Email
			break
		}
	}
	return su, nil
}
