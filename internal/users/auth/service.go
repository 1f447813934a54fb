// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/agora/internal/platform/mailer"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Contracts & Types

// TokenIssuer mints and inspects session tokens.
type TokenIssuer interface {
	Issue(identity sec.Identity) (sec.TokenPair, error)
	IsValid(token string) bool
	// Subject verifies the signature only, so expired tokens still resolve.
	Subject(token string) (string, error)
}

// KeyCipher turns verification payloads into opaque authorization keys.
type KeyCipher interface {
	Encrypt(plainText string) (string, error)
	Decrypt(cipherText string) (string, error)
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Members      MemberRepository
	Sessions     RefreshSessionRepository
	Verification VerificationTokenRepository
	Resets       PasswordResetRepository
	Cooldowns    CooldownRepository
	Tokens       TokenIssuer
	Cipher       KeyCipher
	Mailer       mailer.Mailer
	Federated    *FederatedResolver
}

// Config carries the tunable lifetimes of the verification flow.
type Config struct {
	VerificationTTL     time.Duration
	VerifyEmailCooldown time.Duration
}

// Service implements member authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// rotation or the verification flow must be reviewed by the security team.
type Service struct {
	members      MemberRepository
	sessions     RefreshSessionRepository
	verification VerificationTokenRepository
	resets       PasswordResetRepository
	cooldowns    CooldownRepository
	tokens       TokenIssuer
	cipher       KeyCipher
	mailer       mailer.Mailer
	federated    *FederatedResolver
	config       Config
	digits       DigitSource
	now          func() time.Time
	logger       *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies, config Config, logger *slog.Logger) *Service {
	return &Service{
		members:      deps.Members,
		sessions:     deps.Sessions,
		verification: deps.Verification,
		resets:       deps.Resets,
		cooldowns:    deps.Cooldowns,
		tokens:       deps.Tokens,
		cipher:       deps.Cipher,
		mailer:       deps.Mailer,
		federated:    deps.Federated,
		config:       config,
		digits:       randomDigits,
		now:          time.Now,
		logger:       logger,
	}
}

// # Registration Flow

// existsFunc is the shape of the MemberRepository uniqueness checks.
type existsFunc func(context.Context, string) (bool, error)

// SignUpInput holds the data required to enroll a new member.
type SignUpInput struct {
	AccountHandle string
	Email         string
	Password      string
	DisplayName   string
	Phone         string
}

/*
SignUp validates uniqueness, hashes the password and persists a new member.

Description: The four identifiers are checked in a fixed order and the first
clash wins. The member starts unverified with the USER role.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *Member: Created entity
  - error: Conflict sentinels or storage errors
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*Member, error) {
	checks := []struct {
		exists existsFunc
		value  string
		clash  error
	}{
		{service.members.ExistsByAccountHandle, input.AccountHandle, ErrIDAlreadyExists},
		{service.members.ExistsByEmail, input.Email, ErrEmailAlreadyExists},
		{service.members.ExistsByDisplayName, input.DisplayName, ErrUsernameAlreadyExists},
		{service.members.ExistsByPhone, input.Phone, ErrTelAlreadyExists},
	}

	for _, check := range checks {
		taken, err := check.exists(context, check.value)
		if err != nil {
			return nil, fmt.Errorf("auth_service_signup_lookup_failed: %w", err)
		}
		if taken {
			return nil, check.clash
		}
	}

	// Prevent storing plain-text passwords
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	member := &Member{
		AccountHandle: input.AccountHandle,
		Email:         input.Email,
		DisplayName:   input.DisplayName,
		Phone:         input.Phone,
		PasswordHash:  passwordHash,
		Role:          sec.RoleUser,
		IsVerified:    false,
	}

	// The unique constraints still guard the window between check and insert
	if err := service.members.Create(context, member); err != nil {
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	service.logger.Info("member_signed_up", slog.Int64("member_id", member.ID))

	return member, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	AccountHandle string
	Password      string
}

/*
Login validates member credentials and issues a session token pair.

Description: An unknown handle and a wrong password are indistinguishable to
the caller. On success the refresh token replaces any previous session.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - sec.TokenPair: Access and refresh tokens
  - error: ErrIncorrectPassword or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (sec.TokenPair, error) {
	member, err := service.members.FindByAccountHandle(context, input.AccountHandle)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return sec.TokenPair{}, ErrIncorrectPassword
		}
		return sec.TokenPair{}, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// Federated-only members carry an empty hash, which never matches
	if !sec.CheckPasswordHash(input.Password, member.PasswordHash) {
		return sec.TokenPair{}, ErrIncorrectPassword
	}

	pair, err := service.openSession(context, member)
	if err != nil {
		return sec.TokenPair{}, err
	}

	service.logger.Info("member_logged_in", slog.Int64("member_id", member.ID))

	return pair, nil
}

/*
FederatedLogin resolves a federated profile to a member and opens a session.

Parameters:
  - context: context.Context
  - attributes: oauth.Attributes

Returns:
  - sec.TokenPair: Access and refresh tokens
  - *Member: The resolved member
  - error: Resolution or token failures
*/
func (service *Service) FederatedLogin(context context.Context, attributes oauth.Attributes) (sec.TokenPair, *Member, error) {
	member, created, err := service.federated.Resolve(context, attributes)
	if err != nil {
		return sec.TokenPair{}, nil, err
	}

	pair, err := service.openSession(context, member)
	if err != nil {
		return sec.TokenPair{}, nil, err
	}

	service.logger.Info("member_federated_login",
		slog.Int64("member_id", member.ID),
		slog.String("provider", string(attributes.Provider())),
		slog.Bool("created", created),
	)

	return pair, member, nil
}

// openSession issues a token pair and stores its refresh token as the live session.
func (service *Service) openSession(context context.Context, member *Member) (sec.TokenPair, error) {
	pair, err := service.tokens.Issue(member.Identity())
	if err != nil {
		return sec.TokenPair{}, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	if err := service.sessions.Upsert(context, member.AccountHandle, pair.RefreshToken); err != nil {
		return sec.TokenPair{}, fmt.Errorf("auth_service_session_upsert_failed: %w", err)
	}

	return pair, nil
}

// # Session Management

/*
Refresh implements refresh token rotation.

Description: The presented token must verify and must be the account's live
session. A new pair replaces it, so the presented token stops working the
moment this call returns.

Parameters:
  - context: context.Context
  - header: string (Bearer-prefixed refresh token)

Returns:
  - sec.TokenPair: Rotated tokens
  - error: ErrInvalidToken, ErrRefreshTokenNotFound, ErrMemberNotFound or internal failures
*/
func (service *Service) Refresh(context context.Context, header string) (sec.TokenPair, error) {
	token := sec.StripBearer(header)
	if token == "" || !service.tokens.IsValid(token) {
		return sec.TokenPair{}, ErrInvalidToken
	}

	session, err := service.sessions.FindByToken(context, token)
	if err != nil {
		return sec.TokenPair{}, err
	}

	member, err := service.members.FindByAccountHandle(context, session.AccountHandle)
	if err != nil {
		return sec.TokenPair{}, err
	}

	pair, err := service.openSession(context, member)
	if err != nil {
		return sec.TokenPair{}, err
	}

	service.logger.Info("session_rotated", slog.Int64("member_id", member.ID))

	return pair, nil
}

/*
Logout discards every session of the account named by the refresh token.

Description: Only the signature is verified, so an expired refresh token
still logs out. An absent header is a no-op.

Parameters:
  - context: context.Context
  - header: string (Bearer-prefixed refresh token)

Returns:
  - error: ErrInvalidToken or storage failures
*/
func (service *Service) Logout(context context.Context, header string) error {
	token := sec.StripBearer(header)
	if token == "" {
		return nil
	}

	accountHandle, err := service.tokens.Subject(token)
	if err != nil {
		return ErrInvalidToken
	}

	if err := service.sessions.InvalidateAll(context, accountHandle); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.logger.Info("session_invalidated", slog.String("account_handle", accountHandle))

	return nil
}

// # Email Verification

/*
SendVerifyEmail emails a fresh verification code to an authenticated member.

Parameters:
  - context: context.Context
  - memberID: int64

Returns:
  - error: ErrAlreadyVerified, cooldown, or delivery failures
*/
func (service *Service) SendVerifyEmail(context context.Context, memberID int64) error {
	member, err := service.members.FindByID(context, memberID)
	if err != nil {
		return err
	}

	if member.IsVerified {
		return ErrAlreadyVerified
	}

	return service.dispatchCode(context, member)
}

// SendVerifyEmailAnonymous emails a code to the member owning both identifiers.
// Verified members are accepted, since the code also drives password recovery.
func (service *Service) SendVerifyEmailAnonymous(context context.Context, accountHandle, email string) error {
	member, err := service.members.FindByAccountHandleAndEmail(context, accountHandle, email)
	if err != nil {
		return err
	}

	return service.dispatchCode(context, member)
}

// dispatchCode claims the resend cooldown, stores a new code and mails it.
func (service *Service) dispatchCode(context context.Context, member *Member) error {
	remaining, err := service.cooldowns.Acquire(context, member.ID, service.config.VerifyEmailCooldown)
	if err != nil {
		return fmt.Errorf("auth_service_cooldown_failed: %w", err)
	}
	if remaining > 0 {
		return &CooldownError{RetryAfter: int(math.Ceil(remaining.Seconds()))}
	}

	payload, err := service.digits(VerificationCodeDigits)
	if err != nil {
		service.releaseCooldown(context, member.ID)
		return err
	}

	token, err := service.verification.Issue(context, member.ID, payload, service.config.VerificationTTL)
	if err != nil {
		service.releaseCooldown(context, member.ID)
		return fmt.Errorf("auth_service_issue_code_failed: %w", err)
	}

	message := mailer.Message{
		To:      member.Email,
		Subject: VerifyEmailSubject,
		Body: fmt.Sprintf("Your Agora verification code is %s.\r\nIt expires at %s.\r\n",
			payload, token.ExpiresAt.UTC().Format(time.RFC1123)),
	}

	if err := service.mailer.Send(context, message); err != nil {
		service.releaseCooldown(context, member.ID)
		return fmt.Errorf("auth_service_send_verify_email_failed: %w", err)
	}

	service.logger.Info("verify_email_sent", slog.Int64("member_id", member.ID))

	return nil
}

// releaseCooldown lets the member retry after a failed dispatch.
func (service *Service) releaseCooldown(context context.Context, memberID int64) {
	if err := service.cooldowns.Release(context, memberID); err != nil {
		service.logger.Warn("verify_cooldown_release_failed",
			slog.Int64("member_id", memberID),
			slog.Any("error", err),
		)
	}
}

/*
VerifyEmail consumes the code and marks the member verified.

Parameters:
  - context: context.Context
  - memberID: int64
  - payload: string

Returns:
  - error: ErrAlreadyVerified, ErrTokenExpired, ErrTokenNotFound or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, memberID int64, payload string) error {
	member, err := service.members.FindByID(context, memberID)
	if err != nil {
		return err
	}

	if member.IsVerified {
		return ErrAlreadyVerified
	}

	if err := service.verification.Consume(context, member.ID, payload); err != nil {
		return err
	}

	if err := service.members.MarkVerified(context, member.ID); err != nil {
		return fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	service.logger.Info("member_verified", slog.Int64("member_id", member.ID))

	return nil
}

// # Anonymous Password Recovery

// AuthorizationKeyInput identifies the member and the code they received.
type AuthorizationKeyInput struct {
	AccountHandle string
	Email         string
	Payload       string
}

/*
GetAuthorizationKey trades a valid verification code for an authorization key.

Description: The code is checked but left in place. It is consumed by
[Service.UpdateAnonymousPassword], which is the only step that mutates state.
The key seals the member id next to the code, since codes are short and two
members may hold the same one.

Parameters:
  - context: context.Context
  - input: AuthorizationKeyInput

Returns:
  - string: Authorization key
  - error: ErrMemberNotFound, ErrTokenExpired, ErrTokenNotFound or cipher failures
*/
func (service *Service) GetAuthorizationKey(context context.Context, input AuthorizationKeyInput) (string, error) {
	member, err := service.members.FindByAccountHandleAndEmail(context, input.AccountHandle, input.Email)
	if err != nil {
		return "", err
	}

	if err := service.verification.Check(context, member.ID, input.Payload); err != nil {
		return "", err
	}

	key, err := service.cipher.Encrypt(sealedKey(member.ID, input.Payload))
	if err != nil {
		return "", fmt.Errorf("auth_service_encrypt_key_failed: %w", err)
	}

	return key, nil
}

// sealedKey is the plaintext of an authorization key: "<member id>:<code>".
func sealedKey(memberID int64, payload string) string {
	return strconv.FormatInt(memberID, 10) + ":" + payload
}

func openKey(plain string) (int64, string, bool) {
	idText, payload, found := strings.Cut(plain, ":")
	if !found || payload == "" {
		return 0, "", false
	}

	memberID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return 0, "", false
	}

	return memberID, payload, true
}

// PasswordResetInput holds the new password and its confirmation.
type PasswordResetInput struct {
	NewPassword        string
	ConfirmNewPassword string
}

/*
UpdateAnonymousPassword sets a new password for the member behind an authorization key.

Description: A forged or corrupted key reads as ErrTokenNotFound. The code is
consumed, the password changed and all remaining codes of the member purged
in one transaction: of two concurrent resets with the same key at most one
succeeds, and a failed update leaves the code usable.

Parameters:
  - context: context.Context
  - authorizationKey: string
  - input: PasswordResetInput

Returns:
  - error: ErrTokenNotFound, ErrTokenExpired, ErrPasswordConfirmFail or storage failures
*/
func (service *Service) UpdateAnonymousPassword(context context.Context, authorizationKey string, input PasswordResetInput) error {
	plain, err := service.cipher.Decrypt(authorizationKey)
	if err != nil {
		return ErrTokenNotFound
	}

	memberID, payload, ok := openKey(plain)
	if !ok {
		return ErrTokenNotFound
	}

	token, err := service.verification.FindLatest(context, memberID, payload)
	if err != nil {
		return err
	}
	if token.Expired(service.now()) {
		return ErrTokenExpired
	}

	if input.NewPassword != input.ConfirmNewPassword {
		return ErrPasswordConfirmFail
	}

	passwordHash, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.resets.Reset(context, token.ID, token.MemberID, passwordHash); err != nil {
		return fmt.Errorf("auth_service_reset_password_failed: %w", err)
	}

	service.logger.Info("password_reset", slog.Int64("member_id", token.MemberID))

	return nil
}

// VerifyPassword checks the submitted password without changing anything.
func (service *Service) VerifyPassword(context context.Context, memberID int64, password string) error {
	member, err := service.members.FindByID(context, memberID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(password, member.PasswordHash) {
		return ErrPasswordConfirmFail
	}

	return nil
}
