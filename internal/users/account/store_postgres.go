// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/agora/internal/platform/postgres"
	"github.com/taibuivan/agora/internal/users/auth"
)

// PostgresWithdrawalRepository implements [WithdrawalRepository] on top of
// the auth repositories, bound to one transaction per withdrawal.
type PostgresWithdrawalRepository struct {
	db postgres.TxBeginner
}

// NewWithdrawalRepository creates a new Postgres withdrawal repository.
func NewWithdrawalRepository(db postgres.TxBeginner) *PostgresWithdrawalRepository {
	return &PostgresWithdrawalRepository{db: db}
}

func (repository *PostgresWithdrawalRepository) Withdraw(context context.Context, member *auth.Member) error {
	err := pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {
		if err := auth.NewRefreshSessionRepository(tx).InvalidateAll(context, member.AccountHandle); err != nil {
			return err
		}

		if err := auth.NewVerificationTokenRepository(tx).PurgeAll(context, member.ID); err != nil {
			return err
		}

		return auth.NewMemberRepository(tx).Delete(context, member.ID)
	})
	if err != nil {
		return fmt.Errorf("postgres_withdrawal_repo_withdraw_failed: %w", err)
	}

	return nil
}
