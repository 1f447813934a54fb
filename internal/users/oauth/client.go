// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/taibuivan/agora/internal/platform/apperr"
)

// ErrExchangeFailed is returned when the provider rejects the authorization code
// or its profile endpoint cannot be read.
var ErrExchangeFailed = apperr.New(http.StatusUnauthorized, "FEDERATED_LOGIN_FAILED", "Login provider rejected the authorization")

const (
	userInfoTimeout = 10 * time.Second
	maxProfileBytes = 1 << 20
)

// Registration describes one provider's OAuth 2.0 client.
type Registration struct {
	Provider     Provider
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// DefaultRegistration fills in the public endpoints and scopes of a provider.
func DefaultRegistration(provider Provider, clientID, clientSecret, redirectURL string) Registration {
	registration := Registration{
		Provider:     provider,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	}

	switch provider {
	case ProviderGoogle:
		registration.Endpoint = google.Endpoint
		registration.Scopes = []string{"openid", "email", "profile"}
		registration.UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	case ProviderKakao:
		registration.Endpoint = oauth2.Endpoint{
			AuthURL:   "https://kauth.kakao.com/oauth/authorize",
			TokenURL:  "https://kauth.kakao.com/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		registration.Scopes = []string{"account_email", "profile_nickname", "profile_image"}
		registration.UserInfoURL = "https://kapi.kakao.com/v2/user/me"
	case ProviderNaver:
		registration.Endpoint = oauth2.Endpoint{
			AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
			TokenURL:  "https://nid.naver.com/oauth2.0/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		registration.UserInfoURL = "https://openapi.naver.com/v1/nid/me"
	}

	return registration
}

type providerClient struct {
	config      *oauth2.Config
	userInfoURL string
}

// Client runs the authorization code flow against the registered providers.
type Client struct {
	providers  map[Provider]providerClient
	httpClient *http.Client
}

// NewClient creates a [Client]. A nil httpClient selects a client with a
// bounded timeout.
func NewClient(httpClient *http.Client, registrations ...Registration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: userInfoTimeout}
	}

	providers := make(map[Provider]providerClient, len(registrations))
	for _, registration := range registrations {
		providers[registration.Provider] = providerClient{
			config: &oauth2.Config{
				ClientID:     registration.ClientID,
				ClientSecret: registration.ClientSecret,
				RedirectURL:  registration.RedirectURL,
				Scopes:       registration.Scopes,
				Endpoint:     registration.Endpoint,
			},
			userInfoURL: registration.UserInfoURL,
		}
	}

	return &Client{providers: providers, httpClient: httpClient}
}

// Enabled reports whether provider has a registration.
func (client *Client) Enabled(provider Provider) bool {
	_, ok := client.providers[provider]
	return ok
}

// AuthCodeURL returns the consent page URL for provider carrying state.
func (client *Client) AuthCodeURL(provider Provider, state string) (string, error) {
	registered, ok := client.providers[provider]
	if !ok {
		return "", ErrUnsupportedProvider
	}
	return registered.config.AuthCodeURL(state), nil
}

/*
FetchAttributes exchanges an authorization code and reads the provider profile.

Parameters:
  - ctx: context.Context
  - provider: Provider
  - code: string (authorization code from the callback)

Returns:
  - Attributes: Canonical profile
  - error: ErrUnsupportedProvider, ErrExchangeFailed or ErrIncompleteProfile
*/
func (client *Client) FetchAttributes(ctx context.Context, provider Provider, code string) (Attributes, error) {
	registered, ok := client.providers[provider]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, client.httpClient)

	token, err := registered.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth_exchange_failed: %w: %v", ErrExchangeFailed, err)
	}

	raw, err := client.fetchProfile(ctx, registered, token)
	if err != nil {
		return nil, err
	}

	return Parse(provider, raw)
}

func (client *Client) fetchProfile(ctx context.Context, registered providerClient, token *oauth2.Token) (map[string]any, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, registered.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth_userinfo_request_failed: %w", err)
	}

	response, err := registered.config.Client(ctx, token).Do(request)
	if err != nil {
		return nil, fmt.Errorf("oauth_userinfo_failed: %w: %v", ErrExchangeFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxProfileBytes))
		return nil, fmt.Errorf("oauth_userinfo_status_%d: %w", response.StatusCode, ErrExchangeFailed)
	}

	decoder := json.NewDecoder(io.LimitReader(response.Body, maxProfileBytes))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("oauth_userinfo_decode_failed: %w: %v", ErrExchangeFailed, err)
	}

	return raw, nil
}
