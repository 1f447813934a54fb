// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/agora/internal/platform/database/schema"
	"github.com/taibuivan/agora/internal/platform/dberr"
	"github.com/taibuivan/agora/internal/platform/postgres"
)

// # Refresh Session Repository

// PostgresRefreshSessionRepository implements [RefreshSessionRepository] on users.refreshsession.
type PostgresRefreshSessionRepository struct {
	db  postgres.DBTX
	now func() time.Time
}

// NewRefreshSessionRepository creates a new PostgreSQL implementation of the RefreshSessionRepository.
func NewRefreshSessionRepository(db postgres.DBTX) *PostgresRefreshSessionRepository {
	return &PostgresRefreshSessionRepository{db: db, now: time.Now}
}

/*
Upsert stores refreshToken as the only live session of the account.

Description: The primary key on accounthandle plus ON CONFLICT makes this a
single atomic statement. Concurrent logins serialise on the row and the last
writer wins.

Parameters:
  - context: context.Context
  - accountHandle: string
  - refreshToken: string

Returns:
  - error: ErrMemberNotFound when the account does not exist, or execution failure
*/
func (repository *PostgresRefreshSessionRepository) Upsert(context context.Context, accountHandle, refreshToken string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (%s) DO UPDATE
		SET %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		schema.UserRefreshSession.Table,
		schema.UserRefreshSession.AccountHandle, schema.UserRefreshSession.RefreshToken,
		schema.UserRefreshSession.CreatedAt, schema.UserRefreshSession.UpdatedAt,
		schema.UserRefreshSession.AccountHandle,
		schema.UserRefreshSession.RefreshToken, schema.UserRefreshSession.RefreshToken,
		schema.UserRefreshSession.UpdatedAt, schema.UserRefreshSession.UpdatedAt,
	)

	_, err := repository.db.Exec(context, query, accountHandle, refreshToken, repository.now().UTC())
	if err != nil {
		if dberr.ConstraintCode(err) == dberr.CodeForeignKeyViolation {
			return ErrMemberNotFound
		}
		return fmt.Errorf("postgres_refresh_session_repo_upsert_failed: %w", err)
	}

	return nil
}

func (repository *PostgresRefreshSessionRepository) findOne(context context.Context, tag, column, value string) (*RefreshSession, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.UserRefreshSession.AccountHandle, schema.UserRefreshSession.RefreshToken,
		schema.UserRefreshSession.CreatedAt, schema.UserRefreshSession.UpdatedAt,
		schema.UserRefreshSession.Table, column,
	)

	session := &RefreshSession{}
	err := repository.db.QueryRow(context, query, value).Scan(
		&session.AccountHandle,
		&session.RefreshToken,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("postgres_refresh_session_repo_%s_failed: %w", tag, err)
	}

	return session, nil
}

func (repository *PostgresRefreshSessionRepository) FindByAccount(context context.Context, accountHandle string) (*RefreshSession, error) {
	return repository.findOne(context, "find_by_account", schema.UserRefreshSession.AccountHandle, accountHandle)
}

func (repository *PostgresRefreshSessionRepository) FindByToken(context context.Context, refreshToken string) (*RefreshSession, error) {
	return repository.findOne(context, "find_by_token", schema.UserRefreshSession.RefreshToken, refreshToken)
}

// InvalidateAll deletes the sessions of the account. Deleting nothing is not an error.
func (repository *PostgresRefreshSessionRepository) InvalidateAll(context context.Context, accountHandle string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserRefreshSession.Table, schema.UserRefreshSession.AccountHandle)

	if _, err := repository.db.Exec(context, query, accountHandle); err != nil {
		return fmt.Errorf("postgres_refresh_session_repo_invalidate_all_failed: %w", err)
	}

	return nil
}
