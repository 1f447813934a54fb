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

// # Verification Token Repository

// PostgresVerificationTokenRepository implements [VerificationTokenRepository] on users.verificationtoken.
//
// Expiry is evaluated against the repository clock, never the database clock,
// so that the service and the store agree on the boundary.
type PostgresVerificationTokenRepository struct {
	db  postgres.DBTX
	now func() time.Time
}

// NewVerificationTokenRepository creates a new PostgreSQL implementation of the VerificationTokenRepository.
func NewVerificationTokenRepository(db postgres.DBTX) *PostgresVerificationTokenRepository {
	return &PostgresVerificationTokenRepository{db: db, now: time.Now}
}

/*
Issue stores a new verification code for the member.

Parameters:
  - context: context.Context
  - memberID: int64
  - payload: string
  - ttl: time.Duration

Returns:
  - *VerificationToken: Stored entity with generated ID
  - error: ErrMemberNotFound or execution failure
*/
func (repository *PostgresVerificationTokenRepository) Issue(context context.Context, memberID int64, payload string, ttl time.Duration) (*VerificationToken, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`,
		schema.UserVerificationToken.Table,
		schema.UserVerificationToken.MemberID, schema.UserVerificationToken.Payload,
		schema.UserVerificationToken.ExpiresAt, schema.UserVerificationToken.CreatedAt,
		schema.UserVerificationToken.ID,
	)

	now := repository.now().UTC()
	token := &VerificationToken{
		MemberID:  memberID,
		Payload:   payload,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err := repository.db.QueryRow(context, query, memberID, payload, token.ExpiresAt, token.CreatedAt).Scan(&token.ID)
	if err != nil {
		if dberr.ConstraintCode(err) == dberr.CodeForeignKeyViolation {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("postgres_verification_token_repo_issue_failed: %w", err)
	}

	return token, nil
}

/*
Consume deletes the member's unexpired token carrying payload.

Description: The delete is conditional on expiry, so of two racing callers
only the one whose statement removes the row succeeds. A miss is classified
by probing for an expired row with the same payload.

Parameters:
  - context: context.Context
  - memberID: int64
  - payload: string

Returns:
  - error: ErrTokenExpired, ErrTokenNotFound or execution failure
*/
func (repository *PostgresVerificationTokenRepository) Consume(context context.Context, memberID int64, payload string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s > $3`,
		schema.UserVerificationToken.Table,
		schema.UserVerificationToken.MemberID, schema.UserVerificationToken.Payload,
		schema.UserVerificationToken.ExpiresAt,
	)

	result, err := repository.db.Exec(context, query, memberID, payload, repository.now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_verification_token_repo_consume_failed: %w", err)
	}

	if result.RowsAffected() > 0 {
		return nil
	}

	// Nothing live was deleted. Any remaining row must be expired.
	classify := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`,
		schema.UserVerificationToken.Table,
		schema.UserVerificationToken.MemberID, schema.UserVerificationToken.Payload,
	)

	var expired bool
	if err := repository.db.QueryRow(context, classify, memberID, payload).Scan(&expired); err != nil {
		return fmt.Errorf("postgres_verification_token_repo_consume_classify_failed: %w", err)
	}

	if expired {
		return ErrTokenExpired
	}
	return ErrTokenNotFound
}

// Check reports the state Consume would observe, leaving the token in place.
func (repository *PostgresVerificationTokenRepository) Check(context context.Context, memberID int64, payload string) error {
	query := fmt.Sprintf(`SELECT MAX(%s) FROM %s WHERE %s = $1 AND %s = $2`,
		schema.UserVerificationToken.ExpiresAt, schema.UserVerificationToken.Table,
		schema.UserVerificationToken.MemberID, schema.UserVerificationToken.Payload,
	)

	var expiresAt *time.Time
	if err := repository.db.QueryRow(context, query, memberID, payload).Scan(&expiresAt); err != nil {
		return fmt.Errorf("postgres_verification_token_repo_check_failed: %w", err)
	}

	if expiresAt == nil {
		return ErrTokenNotFound
	}
	if !expiresAt.After(repository.now()) {
		return ErrTokenExpired
	}

	return nil
}

func (repository *PostgresVerificationTokenRepository) FindLatest(context context.Context, memberID int64, payload string) (*VerificationToken, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
		ORDER BY %s DESC, %s DESC
		LIMIT 1`,
		schema.UserVerificationToken.ID, schema.UserVerificationToken.MemberID,
		schema.UserVerificationToken.Payload, schema.UserVerificationToken.ExpiresAt,
		schema.UserVerificationToken.CreatedAt,
		schema.UserVerificationToken.Table,
		schema.UserVerificationToken.MemberID, schema.UserVerificationToken.Payload,
		schema.UserVerificationToken.CreatedAt, schema.UserVerificationToken.ID,
	)

	token := &VerificationToken{}
	err := repository.db.QueryRow(context, query, memberID, payload).Scan(
		&token.ID,
		&token.MemberID,
		&token.Payload,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("postgres_verification_token_repo_find_latest_failed: %w", err)
	}

	return token, nil
}

// ConsumeByID deletes the token. Only the first of several callers sees nil.
func (repository *PostgresVerificationTokenRepository) ConsumeByID(context context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserVerificationToken.Table, schema.UserVerificationToken.ID)

	result, err := repository.db.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_verification_token_repo_consume_by_id_failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	return nil
}

func (repository *PostgresVerificationTokenRepository) PurgeAll(context context.Context, memberID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserVerificationToken.Table, schema.UserVerificationToken.MemberID)

	if _, err := repository.db.Exec(context, query, memberID); err != nil {
		return fmt.Errorf("postgres_verification_token_repo_purge_all_failed: %w", err)
	}

	return nil
}

// DeleteExpired removes tokens whose expiry is before the cutoff and returns the count.
func (repository *PostgresVerificationTokenRepository) DeleteExpired(context context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		schema.UserVerificationToken.Table, schema.UserVerificationToken.ExpiresAt)

	result, err := repository.db.Exec(context, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres_verification_token_repo_delete_expired_failed: %w", err)
	}

	return result.RowsAffected(), nil
}
