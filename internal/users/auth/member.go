// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential lifecycle of Agora members.

It issues, validates, rotates and revokes every trust token in the system:
session token pairs, single-use email verification codes, and the authorization
key that carries a verified code into the anonymous password reset. It also
reconciles federated identities onto local members.

# Architecture

  - Entities: Member, RefreshSession, VerificationToken.
  - Service: orchestrates each user-facing flow on top of the repositories.
  - Repositories: PostgreSQL for durable state, Redis for the resend cooldown.
*/
package auth

import (
	"time"

	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Domain Entities

// Member is the identity root of a person using Agora.
//
// A member authenticates with a local password, a federated provider, or both
// once linked. Provider and ProviderSubject are nil for local-only members.
type Member struct {
	ID              int64           `json:"id"`
	AccountHandle   string          `json:"account_handle"`
	Email           string          `json:"email"`
	DisplayName     string          `json:"display_name"`
	Phone           string          `json:"phone"`
	PasswordHash    string          `json:"-"`
	AvatarURL       string          `json:"avatar_url,omitempty"`
	IsVerified      bool            `json:"is_verified"`
	Role            sec.Role        `json:"role"`
	Provider        *oauth.Provider `json:"provider,omitempty"`
	ProviderSubject *string         `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Identity returns the claim source used to mint session tokens.
func (member *Member) Identity() sec.Identity {
	return sec.Identity{
		ID:            member.ID,
		AccountHandle: member.AccountHandle,
		Email:         member.Email,
		DisplayName:   member.DisplayName,
		Phone:         member.Phone,
		AvatarURL:     member.AvatarURL,
		Verified:      member.IsVerified,
		Role:          member.Role,
	}
}

// RefreshSession is the single live refresh credential of an account.
type RefreshSession struct {
	AccountHandle string    `json:"account_handle"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VerificationToken is an outstanding proof-of-email-ownership challenge.
// It is deleted when consumed, never flagged as used.
type VerificationToken struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Payload   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (token *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(token.ExpiresAt)
}

// # Field Identifiers

// Field names for validation errors raised by the authentication endpoints.
const (
	FieldAccountHandle      = "account_handle"
	FieldEmail              = "email"
	FieldPassword           = "password"
	FieldDisplayName        = "display_name"
	FieldPhone              = "phone"
	FieldPayload            = "payload"
	FieldAuthorizationKey   = "authorization_key"
	FieldNewPassword        = "new_password"
	FieldConfirmNewPassword = "confirm_new_password"
)
