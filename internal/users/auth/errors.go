// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"net/http"

	"github.com/taibuivan/agora/internal/platform/apperr"
)

// # Sentinel Errors

// Every expected outcome of an authentication flow maps to one of these.
// Anything else is an infrastructure failure rendered as 500.
var (
	ErrIDAlreadyExists       = apperr.New(http.StatusConflict, "ID_ALREADY_EXISTS", "Account handle is already taken")
	ErrEmailAlreadyExists    = apperr.New(http.StatusConflict, "EMAIL_ALREADY_EXISTS", "Email is already registered")
	ErrUsernameAlreadyExists = apperr.New(http.StatusConflict, "USERNAME_ALREADY_EXISTS", "Display name is already taken")
	ErrTelAlreadyExists      = apperr.New(http.StatusConflict, "TEL_ALREADY_EXISTS", "Phone number is already registered")

	ErrIncorrectPassword   = apperr.New(http.StatusUnauthorized, "INCORRECT_PASSWORD", "Account handle or password is incorrect")
	ErrPasswordConfirmFail = apperr.New(http.StatusBadRequest, "PASSWORD_CONFIRM_FAIL", "Password confirmation does not match")

	ErrInvalidToken         = apperr.New(http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
	ErrRefreshTokenNotFound = apperr.New(http.StatusUnauthorized, "REFRESH_TOKEN_NOT_FOUND", "Refresh session does not exist")

	ErrMemberNotFound = apperr.New(http.StatusNotFound, "MEMBER_NOT_FOUND", "Member not found")
	ErrTokenNotFound  = apperr.New(http.StatusNotFound, "TOKEN_NOT_FOUND", "Verification code not found")
	ErrTokenExpired   = apperr.New(http.StatusGone, "TOKEN_EXPIRED", "Verification code has expired")

	ErrAlreadyVerified     = apperr.New(http.StatusConflict, "ALREADY_VERIFIED", "Email is already verified")
	ErrVerifyEmailCooldown = apperr.New(http.StatusTooManyRequests, "VERIFY_EMAIL_COOLDOWN", "A verification email was sent recently")
)

// CooldownError reports how long a member must wait before another
// verification email is sent. It matches [ErrVerifyEmailCooldown].
type CooldownError struct {
	RetryAfter int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s; retry in %ds", ErrVerifyEmailCooldown.Message, e.RetryAfter)
}

// Unwrap exposes the sentinel for errors.Is and respond.Error.
func (e *CooldownError) Unwrap() error { return ErrVerifyEmailCooldown }

// RetryAfterSeconds sets the Retry-After response header.
func (e *CooldownError) RetryAfterSeconds() int { return e.RetryAfter }
