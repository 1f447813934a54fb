// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, session
// token signing, the authorization key cipher) from the domain logic. It is
// injected into the application layer via constructors and holds no global
// state.
package sec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a session token fails signature or expiry checks.
var ErrInvalidToken = errors.New("sec: invalid token")

// BearerPrefix is the scheme prefix carried by access and refresh headers.
const BearerPrefix = "Bearer "

// TokenType is carried in the "typ" claim so an access token can never stand
// in for a refresh token and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// # Claims

// Identity is the canonical member record a token pair is minted from.
type Identity struct {
	ID            int64
	AccountHandle string
	Email         string
	DisplayName   string
	Phone         string
	AvatarURL     string
	Verified      bool
	Role          Role
}

// AccessClaims represents the payload embedded inside an access token.
//
// The full profile is carried so that [middleware.Authenticate] can rebuild
// the caller identity without querying the database on every request.
type AccessClaims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"typ"`

	ID            int64  `json:"id"`
	AccountHandle string `json:"account_handle"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Phone         string `json:"phone"`
	AvatarURL     string `json:"avatar_url"`
	Verified      bool   `json:"verified"`
	Role          Role   `json:"role"`
}

// refreshClaims is the payload of a refresh token. Subject is the account handle.
type refreshClaims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"typ"`
}

// TokenPair is the result of [TokenService.Issue].
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// # Token Service

// TokenConfig configures a [TokenService].
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock used for issuing and verifying. Defaults to time.Now.
	Now func() time.Time
}

// TokenService mints and verifies HS256 session tokens.
// Verification is stateless; nothing is stored.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a new [TokenService]. An empty secret is rejected.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.Secret == "" {
		return nil, errors.New("sec: token secret must not be empty")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret:     []byte(config.Secret),
		issuer:     config.Issuer,
		accessTTL:  config.AccessTTL,
		refreshTTL: config.RefreshTTL,
		now:        now,
	}, nil
}

/*
Issue mints an access token carrying the full profile and a refresh token
carrying only the account handle as its subject.

Parameters:
  - identity: Identity

Returns:
  - TokenPair: Both signed tokens and their expiry instants
  - error: Signing failures
*/
func (service *TokenService) Issue(identity Identity) (TokenPair, error) {
	issuedAt := service.now()
	accessExpiry := issuedAt.Add(service.accessTTL)
	refreshExpiry := issuedAt.Add(service.refreshTTL)

	access := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(identity.ID, 10),
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
		Type:          TokenTypeAccess,
		ID:            identity.ID,
		AccountHandle: identity.AccountHandle,
		Email:         identity.Email,
		DisplayName:   identity.DisplayName,
		Phone:         identity.Phone,
		AvatarURL:     identity.AvatarURL,
		Verified:      identity.Verified,
		Role:          identity.Role,
	}

	// The jti keeps two refresh tokens minted in the same second distinct.
	refresh := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.AccountHandle,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
		Type: TokenTypeRefresh,
	}

	accessToken, err := service.sign(access)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := service.sign(refresh)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// IsValid reports whether token is a refresh token whose signature verifies
// and which has not expired. Malformed, re-signed, expired and access tokens
// all yield false.
func (service *TokenService) IsValid(token string) bool {
	if token == "" {
		return false
	}
	claims := &refreshClaims{}
	_, err := jwt.ParseWithClaims(token, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
		jwt.WithExpirationRequired(),
	)
	return err == nil && claims.Type == TokenTypeRefresh
}

// AccessClaims parses a valid access token. Expired, forged and refresh
// tokens return [ErrInvalidToken].
func (service *TokenService) AccessClaims(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != TokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return claims, nil
}

// Subject returns the account handle of a well-signed refresh token without
// checking expiry.
//
// Logout relies on this to discard a session whose refresh token has already
// expired. The signature and the token type are still verified.
func (service *TokenService) Subject(token string) (string, error) {
	claims := &refreshClaims{}
	_, err := jwt.ParseWithClaims(token, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != TokenTypeRefresh {
		return "", fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// StripBearer removes the [BearerPrefix] from a header value.
// It returns an empty string when the prefix is absent or nothing follows it.
func StripBearer(header string) string {
	token, found := strings.CutPrefix(header, BearerPrefix)
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// # Internal

func (service *TokenService) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec_sign_token_failed: %w", err)
	}
	return signed, nil
}

func (service *TokenService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
	}
	return service.secret, nil
}
