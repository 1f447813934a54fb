// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/agora/internal/platform/postgres"
)

// # Password Reset Repository

// PostgresPasswordResetRepository implements [PasswordResetRepository] by
// running the member and verification repositories inside one transaction.
type PostgresPasswordResetRepository struct {
	db  postgres.TxBeginner
	now func() time.Time
}

// NewPasswordResetRepository creates a new Postgres password reset repository.
func NewPasswordResetRepository(db postgres.TxBeginner) *PostgresPasswordResetRepository {
	return &PostgresPasswordResetRepository{db: db, now: time.Now}
}

func (repository *PostgresPasswordResetRepository) Reset(context context.Context, tokenID, memberID int64, passwordHash string) error {
	err := pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {
		tokens := NewVerificationTokenRepository(tx)
		tokens.now = repository.now

		members := NewMemberRepository(tx)
		members.now = repository.now

		// Consuming first makes a concurrent second reset fail before it writes.
		if err := tokens.ConsumeByID(context, tokenID); err != nil {
			return err
		}

		if err := members.UpdatePassword(context, memberID, passwordHash); err != nil {
			return err
		}

		return tokens.PurgeAll(context, memberID)
	})
	if err != nil {
		return fmt.Errorf("postgres_password_reset_repo_reset_failed: %w", err)
	}

	return nil
}
