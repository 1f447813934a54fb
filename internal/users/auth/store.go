// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Member Data Access

// MemberRepository defines the data access contract for members.
//
// Lookups return [ErrMemberNotFound] when no row matches.
type MemberRepository interface {
	ExistsByAccountHandle(context context.Context, accountHandle string) (bool, error)
	ExistsByEmail(context context.Context, email string) (bool, error)
	ExistsByDisplayName(context context.Context, displayName string) (bool, error)
	ExistsByPhone(context context.Context, phone string) (bool, error)

	FindByID(context context.Context, id int64) (*Member, error)
	FindByAccountHandle(context context.Context, accountHandle string) (*Member, error)
	FindByEmail(context context.Context, email string) (*Member, error)

	/*
		FindByAccountHandleAndEmail returns the member owning both identifiers.

		Parameters:
		  - context: context.Context
		  - accountHandle: string
		  - email: string

		Returns:
		  - *Member: Hydrated entity
		  - error: ErrMemberNotFound when the pair does not match a single member
	*/
	FindByAccountHandleAndEmail(context context.Context, accountHandle, email string) (*Member, error)

	/*
		FindByProvider returns the member linked to a federated subject.

		Parameters:
		  - context: context.Context
		  - provider: oauth.Provider
		  - subject: string

		Returns:
		  - *Member: Hydrated entity
		  - error: ErrMemberNotFound when the subject is not linked
	*/
	FindByProvider(context context.Context, provider oauth.Provider, subject string) (*Member, error)

	// CountByDisplayName counts members whose display name starts with prefix.
	CountByDisplayName(context context.Context, prefix string) (int64, error)

	/*
		Create persists a new member and fills its generated ID and timestamps.

		Parameters:
		  - context: context.Context
		  - member: *Member

		Returns:
		  - error: Unique violations are mapped to the matching *AlreadyExists sentinel
	*/
	Create(context context.Context, member *Member) error

	UpdatePassword(context context.Context, memberID int64, passwordHash string) error
	MarkVerified(context context.Context, memberID int64) error

	// UpdateProfile persists the mutable profile fields of member.
	UpdateProfile(context context.Context, member *Member) error

	// Delete removes the member row. Dependent sessions and tokens cascade.
	Delete(context context.Context, memberID int64) error
}

// # Session Data Access

// RefreshSessionRepository stores at most one live refresh token per account.
type RefreshSessionRepository interface {

	/*
		Upsert replaces the refresh token of the account, creating the row if absent.

		Description: Executed as a single statement so concurrent logins for one
		account never leave two rows behind. The last writer wins.

		Parameters:
		  - context: context.Context
		  - accountHandle: string
		  - refreshToken: string

		Returns:
		  - error: Persistence failures
	*/
	Upsert(context context.Context, accountHandle, refreshToken string) error

	// FindByAccount returns [ErrRefreshTokenNotFound] when the account has no session.
	FindByAccount(context context.Context, accountHandle string) (*RefreshSession, error)

	// FindByToken returns [ErrRefreshTokenNotFound] when the token is not the live one.
	FindByToken(context context.Context, refreshToken string) (*RefreshSession, error)

	// InvalidateAll deletes every session of the account. Idempotent.
	InvalidateAll(context context.Context, accountHandle string) error
}

// # Verification Data Access

// VerificationTokenRepository stores outstanding email verification codes.
type VerificationTokenRepository interface {

	// Issue stores payload for the member, valid for ttl.
	Issue(context context.Context, memberID int64, payload string, ttl time.Duration) (*VerificationToken, error)

	/*
		Consume atomically deletes the matching unexpired token.

		Description: At most one of several concurrent callers succeeds. When
		nothing was deleted the outcome is classified as expired or missing.

		Parameters:
		  - context: context.Context
		  - memberID: int64
		  - payload: string

		Returns:
		  - error: ErrTokenExpired, ErrTokenNotFound or persistence failures
	*/
	Consume(context context.Context, memberID int64, payload string) error

	// Check classifies the token like Consume without deleting it.
	Check(context context.Context, memberID int64, payload string) error

	// FindLatest returns the member's most recently issued token carrying payload.
	FindLatest(context context.Context, memberID int64, payload string) (*VerificationToken, error)

	// ConsumeByID deletes one token. [ErrTokenNotFound] when it was already gone.
	ConsumeByID(context context.Context, id int64) error

	// PurgeAll deletes every token of the member.
	PurgeAll(context context.Context, memberID int64) error

	// DeleteExpired removes tokens that expired before the cutoff.
	DeleteExpired(context context.Context, before time.Time) (int64, error)
}

// PasswordResetRepository applies an anonymous password reset as one unit.
type PasswordResetRepository interface {
	/*
		Reset consumes the verification token, stores the new password hash and
		purges the member's remaining tokens. Either all three happen or none.

		Parameters:
		  - context: context.Context
		  - tokenID: int64
		  - memberID: int64
		  - passwordHash: string

		Returns:
		  - error: ErrTokenNotFound when the token was already consumed,
		    ErrMemberNotFound or persistence failures
	*/
	Reset(context context.Context, tokenID, memberID int64, passwordHash string) error
}

// # Volatile Data Access

// CooldownRepository throttles verification email dispatch per member.
type CooldownRepository interface {

	/*
		Acquire claims the cooldown window for the member.

		Parameters:
		  - context: context.Context
		  - memberID: int64
		  - window: time.Duration

		Returns:
		  - time.Duration: Zero when acquired, otherwise the time left on the live window
		  - error: Connectivity failures
	*/
	Acquire(context context.Context, memberID int64, window time.Duration) (time.Duration, error)

	// Release clears the window, used when dispatch fails after acquisition.
	Release(context context.Context, memberID int64) error
}
