package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Dosada05/valorant-arena/config"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ProviderDiscord = "discord"
	ProviderGoogle  = "google"
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrExchangeFailed  = errors.New("oauth code exchange failed")
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const (
	discordUserInfoURL = "https://discord.com/api/users/@me"
	googleUserInfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Identity is what a provider tells us about the person who logged in.
type Identity struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	DisplayName   string
}

type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

type provider struct {
	name        string
	cfg         *oauth2.Config
	userInfoURL string
	parse       func(body []byte) (*Identity, error)
}

func (p *provider) Name() string {
	return p.name
}

func (p *provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s userinfo request: %w", p.name, err)
	}
	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s userinfo: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s userinfo: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s userinfo returned status %d", p.name, resp.StatusCode)
	}

	ident, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s userinfo: %w", p.name, err)
	}
	if ident.ProviderID == "" {
		return nil, fmt.Errorf("%s userinfo carries no account id", p.name)
	}
	ident.Provider = p.name
	return ident, nil
}

func NewDiscord(cfg config.OAuthClientConfig) Provider {
	return newDiscord(cfg, discordEndpoint, discordUserInfoURL)
}

func newDiscord(cfg config.OAuthClientConfig, endpoint oauth2.Endpoint, userInfoURL string) *provider {
	return &provider{
		name: ProviderDiscord,
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		parse:       parseDiscordUser,
	}
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
}

func parseDiscordUser(body []byte) (*Identity, error) {
	var u discordUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return &Identity{ProviderID: u.ID, Email: u.Email, EmailVerified: u.Verified, DisplayName: name}, nil
}

func NewGoogle(cfg config.OAuthClientConfig) Provider {
	return newGoogle(cfg, google.Endpoint, googleUserInfoURL)
}

func newGoogle(cfg config.OAuthClientConfig, endpoint oauth2.Endpoint, userInfoURL string) *provider {
	return &provider{
		name: ProviderGoogle,
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		parse:       parseGoogleUser,
	}
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func parseGoogleUser(body []byte) (*Identity, error) {
	var u googleUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &Identity{ProviderID: u.Sub, Email: u.Email, EmailVerified: u.EmailVerified, DisplayName: u.Name}, nil
}

// Registry holds the providers that have credentials configured.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// FromConfig builds a registry with every provider whose client credentials are set.
func FromConfig(cfg *config.Config) *Registry {
	var ps []Provider
	if cfg.Discord.OAuth.Enabled() {
		ps = append(ps, NewDiscord(cfg.Discord.OAuth))
	}
	if cfg.Google.Enabled() {
		ps = append(ps, NewGoogle(cfg.Google))
	}
	return NewRegistry(ps...)
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// NewState returns an unguessable value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}
