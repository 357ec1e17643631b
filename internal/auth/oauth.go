package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jaevor/go-nanoid"
	"golang.org/x/oauth2"

	"lite-drive/internal/config"
)

var (
	ErrInvalidState    = errors.New("oauth state mismatch")
	ErrEmailUnverified = errors.New("identity provider did not verify the email address")
)

// Identity is what the provider tells us about the person logging in.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider performs the authorization-code flow against an OpenID Connect
// style identity provider (Google by default).
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	newState    func() string
}

func NewProvider(cfg config.OAuthConfig) (*Provider, error) {
	newState, err := nanoid.Standard(32)
	if err != nil {
		return nil, err
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		newState:    newState,
	}, nil
}

func (p *Provider) NewState() string {
	return p.newState()
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and fetches the
// identity it belongs to.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.Email == "" {
		return nil, errors.New("userinfo has no email")
	}
	if identity.EmailVerified != nil && !*identity.EmailVerified {
		return nil, ErrEmailUnverified
	}
	if identity.Name == "" {
		identity.Name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	return &identity, nil
}
