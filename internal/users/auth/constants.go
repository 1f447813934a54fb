// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Authentication Constraints

const (
	// VerificationCodeDigits is the length of the numeric code sent by email.
	VerificationCodeDigits = 6

	// PhonePlaceholderPrefix starts every synthesized federated phone number.
	PhonePlaceholderPrefix = "010"

	// PhonePlaceholderDigits is the count of random digits after the prefix.
	PhonePlaceholderDigits = 8

	// PhonePlaceholderAttempts bounds the search for an unused placeholder.
	PhonePlaceholderAttempts = 5

	// PasswordMinLength is the minimum length of a local password.
	PasswordMinLength = 8

	// PasswordMaxLength keeps passwords within bcrypt's 72 byte input limit.
	PasswordMaxLength = 64

	// AccountHandleMaxLength bounds local and synthesized handles.
	AccountHandleMaxLength = 64

	// DisplayNameMaxLength bounds display names.
	DisplayNameMaxLength = 30

	// VerifyEmailSubject is the subject line of the verification email.
	VerifyEmailSubject = "[Agora] Email verification code"
)
