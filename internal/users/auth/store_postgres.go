// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/taibuivan/agora/internal/platform/database/schema"
	"github.com/taibuivan/agora/internal/platform/dberr"
	"github.com/taibuivan/agora/internal/platform/postgres"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Member Repository

// PostgresMemberRepository implements [MemberRepository] on users.member.
type PostgresMemberRepository struct {
	db  postgres.DBTX
	now func() time.Time
}

// NewMemberRepository creates a new PostgreSQL implementation of the MemberRepository.
func NewMemberRepository(db postgres.DBTX) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db, now: time.Now}
}

// memberColumns is the select list matched by [scanMember].
var memberColumns = strings.Join(schema.UserMember.Columns(), ", ")

// scanMember hydrates a member from a row selected with memberColumns.
func scanMember(row pgx.Row) (*Member, error) {
	var (
		member   Member
		role     string
		provider pgtype.Text
		subject  pgtype.Text
	)

	err := row.Scan(
		&member.ID,
		&member.AccountHandle,
		&member.Email,
		&member.DisplayName,
		&member.Phone,
		&member.PasswordHash,
		&member.AvatarURL,
		&member.IsVerified,
		&role,
		&provider,
		&subject,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	member.Role = sec.Role(role)
	if provider.Valid {
		value := oauth.Provider(provider.String)
		member.Provider = &value
	}
	if subject.Valid {
		value := subject.String
		member.ProviderSubject = &value
	}

	return &member, nil
}

// findOne runs a single-row member lookup and maps a miss to ErrMemberNotFound.
func (repository *PostgresMemberRepository) findOne(context context.Context, tag, where string, args ...any) (*Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, memberColumns, schema.UserMember.Table, where)

	member, err := scanMember(repository.db.QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("postgres_member_repo_%s_failed: %w", tag, err)
	}

	return member, nil
}

// exists reports whether any member has value in column.
func (repository *PostgresMemberRepository) exists(context context.Context, column, value string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, schema.UserMember.Table, column)

	var found bool
	if err := repository.db.QueryRow(context, query, value).Scan(&found); err != nil {
		return false, fmt.Errorf("postgres_member_repo_exists_failed: %w", err)
	}

	return found, nil
}

func (repository *PostgresMemberRepository) ExistsByAccountHandle(context context.Context, accountHandle string) (bool, error) {
	return repository.exists(context, schema.UserMember.AccountHandle, accountHandle)
}

func (repository *PostgresMemberRepository) ExistsByEmail(context context.Context, email string) (bool, error) {
	return repository.exists(context, schema.UserMember.Email, email)
}

func (repository *PostgresMemberRepository) ExistsByDisplayName(context context.Context, displayName string) (bool, error) {
	return repository.exists(context, schema.UserMember.DisplayName, displayName)
}

func (repository *PostgresMemberRepository) ExistsByPhone(context context.Context, phone string) (bool, error) {
	return repository.exists(context, schema.UserMember.Phone, phone)
}

func (repository *PostgresMemberRepository) FindByID(context context.Context, id int64) (*Member, error) {
	return repository.findOne(context, "find_by_id", schema.UserMember.ID+` = $1`, id)
}

func (repository *PostgresMemberRepository) FindByAccountHandle(context context.Context, accountHandle string) (*Member, error) {
	return repository.findOne(context, "find_by_account_handle", schema.UserMember.AccountHandle+` = $1`, accountHandle)
}

func (repository *PostgresMemberRepository) FindByEmail(context context.Context, email string) (*Member, error) {
	return repository.findOne(context, "find_by_email", schema.UserMember.Email+` = $1`, email)
}

func (repository *PostgresMemberRepository) FindByAccountHandleAndEmail(context context.Context, accountHandle, email string) (*Member, error) {
	where := fmt.Sprintf(`%s = $1 AND %s = $2`, schema.UserMember.AccountHandle, schema.UserMember.Email)
	return repository.findOne(context, "find_by_account_handle_and_email", where, accountHandle, email)
}

func (repository *PostgresMemberRepository) FindByProvider(context context.Context, provider oauth.Provider, subject string) (*Member, error) {
	where := fmt.Sprintf(`%s = $1 AND %s = $2`, schema.UserMember.Provider, schema.UserMember.ProviderSubject)
	return repository.findOne(context, "find_by_provider", where, string(provider), subject)
}

/*
CountByDisplayName counts members whose display name begins with prefix.

Description: Used to derive a disambiguating suffix for federated display
names that are already taken.

Parameters:
  - context: context.Context
  - prefix: string

Returns:
  - int64: Number of matching members
  - error: Database execution failure
*/
func (repository *PostgresMemberRepository) CountByDisplayName(context context.Context, prefix string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE starts_with(%s, $1)`,
		schema.UserMember.Table, schema.UserMember.DisplayName)

	var count int64
	if err := repository.db.QueryRow(context, query, prefix).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_member_repo_count_by_display_name_failed: %w", err)
	}

	return count, nil
}

/*
Create persists a new member into the users.member table.

Description: The generated identifier and audit timestamps are written back
into member. Unique violations are reported as the matching domain conflict.

Parameters:
  - context: context.Context
  - member: *Member

Returns:
  - error: Conflict sentinels or database execution failure
*/
func (repository *PostgresMemberRepository) Create(context context.Context, member *Member) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING %s`,
		schema.UserMember.Table,
		schema.UserMember.AccountHandle, schema.UserMember.Email, schema.UserMember.DisplayName,
		schema.UserMember.Phone, schema.UserMember.PasswordHash, schema.UserMember.AvatarURL,
		schema.UserMember.IsVerified, schema.UserMember.Role, schema.UserMember.Provider,
		schema.UserMember.ProviderSubject, schema.UserMember.CreatedAt, schema.UserMember.UpdatedAt,
		schema.UserMember.ID,
	)

	var provider pgtype.Text
	if member.Provider != nil {
		provider = pgtype.Text{String: string(*member.Provider), Valid: true}
	}
	var subject pgtype.Text
	if member.ProviderSubject != nil {
		subject = pgtype.Text{String: *member.ProviderSubject, Valid: true}
	}

	now := repository.now().UTC()
	err := repository.db.QueryRow(context, query,
		member.AccountHandle,
		member.Email,
		member.DisplayName,
		member.Phone,
		member.PasswordHash,
		member.AvatarURL,
		member.IsVerified,
		string(member.Role),
		provider,
		subject,
		now,
	).Scan(&member.ID)

	if err != nil {
		if conflict := memberConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_member_repo_create_failed: %w", err)
	}

	member.CreatedAt = now
	member.UpdatedAt = now

	return nil
}

// memberConflict maps a unique violation on users.member to its domain sentinel.
func memberConflict(err error) error {
	if !dberr.IsUniqueViolation(err) {
		return nil
	}

	switch dberr.ConstraintName(err) {
	case "member_accounthandle_key", "member_provider_key":
		return ErrIDAlreadyExists
	case "member_email_key":
		return ErrEmailAlreadyExists
	case "member_displayname_key":
		return ErrUsernameAlreadyExists
	case "member_phone_key":
		return ErrTelAlreadyExists
	}

	return dberr.ErrDuplicate
}

// execOne runs a single-row update and maps zero affected rows to ErrMemberNotFound.
func (repository *PostgresMemberRepository) execOne(context context.Context, tag, query string, args ...any) error {
	result, err := repository.db.Exec(context, query, args...)
	if err != nil {
		if conflict := memberConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_member_repo_%s_failed: %w", tag, err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}

func (repository *PostgresMemberRepository) UpdatePassword(context context.Context, memberID int64, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.UserMember.Table, schema.UserMember.PasswordHash, schema.UserMember.UpdatedAt, schema.UserMember.ID)

	return repository.execOne(context, "update_password", query, memberID, passwordHash, repository.now().UTC())
}

func (repository *PostgresMemberRepository) MarkVerified(context context.Context, memberID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = $2 WHERE %s = $1`,
		schema.UserMember.Table, schema.UserMember.IsVerified, schema.UserMember.UpdatedAt, schema.UserMember.ID)

	return repository.execOne(context, "mark_verified", query, memberID, repository.now().UTC())
}

/*
UpdateProfile modifies the mutable profile fields of a member.

Description: Syncs DisplayName, Phone and AvatarURL and refreshes updatedat.

Parameters:
  - context: context.Context
  - member: *Member

Returns:
  - error: ErrMemberNotFound, conflict sentinels or execution failure
*/
func (repository *PostgresMemberRepository) UpdateProfile(context context.Context, member *Member) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5 WHERE %s = $1`,
		schema.UserMember.Table,
		schema.UserMember.DisplayName, schema.UserMember.Phone, schema.UserMember.AvatarURL,
		schema.UserMember.UpdatedAt, schema.UserMember.ID,
	)

	now := repository.now().UTC()
	if err := repository.execOne(context, "update_profile", query,
		member.ID, member.DisplayName, member.Phone, member.AvatarURL, now); err != nil {
		return err
	}

	member.UpdatedAt = now
	return nil
}

func (repository *PostgresMemberRepository) Delete(context context.Context, memberID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserMember.Table, schema.UserMember.ID)
	return repository.execOne(context, "delete", query, memberID)
}
