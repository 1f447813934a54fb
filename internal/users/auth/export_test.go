// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"io"
	"time"
)

// DigitsFrom exposes the digit generator over an arbitrary reader.
func DigitsFrom(reader io.Reader, length int) (string, error) {
	return digitsFrom(reader, length)
}

// SealedKey exposes the plaintext layout of authorization keys.
func SealedKey(memberID int64, payload string) string { return sealedKey(memberID, payload) }

func (service *Service) SetDigits(source DigitSource) { service.digits = source }

func (service *Service) SetClock(now func() time.Time) { service.now = now }

func (resolver *FederatedResolver) SetDigits(source DigitSource) { resolver.digits = source }

func (janitor *Janitor) SetClock(now func() time.Time) { janitor.now = now }

func (repository *PostgresMemberRepository) SetClock(now func() time.Time) { repository.now = now }

func (repository *PostgresRefreshSessionRepository) SetClock(now func() time.Time) {
	repository.now = now
}

func (repository *PostgresVerificationTokenRepository) SetClock(now func() time.Time) {
	repository.now = now
}

func (repository *PostgresPasswordResetRepository) SetClock(now func() time.Time) {
	repository.now = now
}
