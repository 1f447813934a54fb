// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/auth"
	"github.com/taibuivan/agora/internal/users/oauth"
)

var storeNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func fixedNow() time.Time { return storeNow }

var memberColumns = []string{
	"id", "accounthandle", "email", "displayname", "phone", "passwordhash",
	"avatarurl", "isverified", "role", "provider", "providersubject", "createdat", "updatedat",
}

// # Member Repository

/*
TestMemberRepository_Create verifies the insert arguments and the generated id.
*/
func TestMemberRepository_Create(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewMemberRepository(mock)
	repository.SetClock(fixedNow)

	provider := oauth.ProviderGoogle
	subject := "g-1"
	member := &auth.Member{
		AccountHandle:   "google_g-1",
		Email:           "g@e.com",
		DisplayName:     "Gil",
		Phone:           "01012345678",
		IsVerified:      true,
		Role:            sec.RoleUser,
		Provider:        &provider,
		ProviderSubject: &subject,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users.member")).
		WithArgs("google_g-1", "g@e.com", "Gil", "01012345678", "", "", true, "USER",
			pgtype.Text{String: "GOOGLE", Valid: true}, pgtype.Text{String: "g-1", Valid: true}, storeNow).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repository.Create(context.Background(), member))
	assert.Equal(t, int64(7), member.ID)
	assert.Equal(t, storeNow, member.CreatedAt)
}

/*
TestMemberRepository_Create_Conflicts verifies each unique constraint maps to its sentinel.
*/
func TestMemberRepository_Create_Conflicts(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"member_accounthandle_key", auth.ErrIDAlreadyExists},
		{"member_email_key", auth.ErrEmailAlreadyExists},
		{"member_displayname_key", auth.ErrUsernameAlreadyExists},
		{"member_phone_key", auth.ErrTelAlreadyExists},
		{"member_provider_key", auth.ErrIDAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			mock := newMock(t)
			repository := auth.NewMemberRepository(mock)

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users.member")).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repository.Create(context.Background(), &auth.Member{Role: sec.RoleUser})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

/*
TestMemberRepository_FindByAccountHandle verifies hydration, misses and failures.
*/
func TestMemberRepository_FindByAccountHandle(t *testing.T) {
	query := regexp.QuoteMeta("FROM users.member WHERE accounthandle = $1")

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewMemberRepository(mock)

		mock.ExpectQuery(query).WithArgs("tester").WillReturnRows(
			pgxmock.NewRows(memberColumns).AddRow(
				int64(1), "tester", "t@e.com", "Tester", "01012345678", "hash", "", false, "ADMIN",
				pgtype.Text{String: "NAVER", Valid: true}, pgtype.Text{String: "n-1", Valid: true}, storeNow, storeNow,
			),
		)

		member, err := repository.FindByAccountHandle(context.Background(), "tester")
		require.NoError(t, err)
		assert.Equal(t, int64(1), member.ID)
		assert.Equal(t, sec.RoleAdmin, member.Role)
		require.NotNil(t, member.Provider)
		assert.Equal(t, oauth.ProviderNaver, *member.Provider)
		assert.Equal(t, "n-1", *member.ProviderSubject)
	})

	t.Run("local member has no provider", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewMemberRepository(mock)

		mock.ExpectQuery(query).WithArgs("tester").WillReturnRows(
			pgxmock.NewRows(memberColumns).AddRow(
				int64(1), "tester", "t@e.com", "Tester", "01012345678", "hash", "", true, "USER",
				pgtype.Text{}, pgtype.Text{}, storeNow, storeNow,
			),
		)

		member, err := repository.FindByAccountHandle(context.Background(), "tester")
		require.NoError(t, err)
		assert.Nil(t, member.Provider)
		assert.Nil(t, member.ProviderSubject)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewMemberRepository(mock)
		mock.ExpectQuery(query).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, err := repository.FindByAccountHandle(context.Background(), "ghost")
		assert.ErrorIs(t, err, auth.ErrMemberNotFound)
	})

	t.Run("database failure", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewMemberRepository(mock)
		mock.ExpectQuery(query).WithArgs("tester").WillReturnError(errors.New("conn reset"))

		_, err := repository.FindByAccountHandle(context.Background(), "tester")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres_member_repo_find_by_account_handle_failed")
	})
}

/*
TestMemberRepository_Existence verifies existence and prefix counting queries.
*/
func TestMemberRepository_Existence(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewMemberRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users.member WHERE phone = $1)")).
		WithArgs("01012345678").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("starts_with(displayname, $1)")).
		WithArgs("Gil").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	taken, err := repository.ExistsByPhone(ctx, "01012345678")
	require.NoError(t, err)
	assert.True(t, taken)

	count, err := repository.CountByDisplayName(ctx, "Gil")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

/*
TestMemberRepository_Updates verifies single-row updates report missing members.
*/
func TestMemberRepository_Updates(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewMemberRepository(mock)
	repository.SetClock(fixedNow)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users.member SET passwordhash = $2")).
		WithArgs(int64(1), "new-hash", storeNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users.member SET isverified = TRUE")).
		WithArgs(int64(2), storeNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users.member")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repository.UpdatePassword(ctx, 1, "new-hash"))
	assert.ErrorIs(t, repository.MarkVerified(ctx, 2), auth.ErrMemberNotFound)
	assert.NoError(t, repository.Delete(ctx, 1))
}

// # Refresh Session Repository

/*
TestRefreshSessionRepository_Upsert verifies the single-statement upsert and its failure modes.
*/
func TestRefreshSessionRepository_Upsert(t *testing.T) {
	query := regexp.QuoteMeta("ON CONFLICT (accounthandle) DO UPDATE")

	t.Run("replaces", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewRefreshSessionRepository(mock)
		repository.SetClock(fixedNow)

		mock.ExpectExec(query).
			WithArgs("tester", "token-2", storeNow).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repository.Upsert(context.Background(), "tester", "token-2"))
	})

	t.Run("unknown account", func(t *testing.T) {
		mock := newMock(t)
		repository := auth.NewRefreshSessionRepository(mock)

		mock.ExpectExec(query).WillReturnError(&pgconn.PgError{Code: "23503"})

		assert.ErrorIs(t, repository.Upsert(context.Background(), "ghost", "token"), auth.ErrMemberNotFound)
	})
}

/*
TestRefreshSessionRepository_Lookups verifies lookups and idempotent invalidation.
*/
func TestRefreshSessionRepository_Lookups(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewRefreshSessionRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users.refreshsession WHERE refreshtoken = $1")).
		WithArgs("token-1").
		WillReturnRows(pgxmock.NewRows([]string{"accounthandle", "refreshtoken", "createdat", "updatedat"}).
			AddRow("tester", "token-1", storeNow, storeNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users.refreshsession WHERE accounthandle = $1")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users.refreshsession WHERE accounthandle = $1")).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	session, err := repository.FindByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "tester", session.AccountHandle)

	_, err = repository.FindByAccount(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	assert.NoError(t, repository.InvalidateAll(ctx, "ghost"))
}

// # Verification Token Repository

/*
TestVerificationTokenRepository_Issue verifies expiry is derived from the repository clock.
*/
func TestVerificationTokenRepository_Issue(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewVerificationTokenRepository(mock)
	repository.SetClock(fixedNow)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users.verificationtoken")).
		WithArgs(int64(1), "482913", storeNow.Add(5*time.Minute), storeNow).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	token, err := repository.Issue(context.Background(), 1, "482913", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(11), token.ID)
	assert.Equal(t, storeNow.Add(5*time.Minute), token.ExpiresAt)
}

/*
TestVerificationTokenRepository_Consume verifies the conditional delete and miss classification.
*/
func TestVerificationTokenRepository_Consume(t *testing.T) {
	deleteQuery := regexp.QuoteMeta("DELETE FROM users.verificationtoken WHERE memberid = $1 AND payload = $2 AND expiresat > $3")
	existsQuery := regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users.verificationtoken")

	tests := []struct {
		name     string
		affected int64
		expired  bool
		want     error
	}{
		{"consumed", 1, false, nil},
		{"expired", 0, true, auth.ErrTokenExpired},
		{"missing", 0, false, auth.ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repository := auth.NewVerificationTokenRepository(mock)
			repository.SetClock(fixedNow)

			mock.ExpectExec(deleteQuery).
				WithArgs(int64(1), "482913", storeNow).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))
			if tt.affected == 0 {
				mock.ExpectQuery(existsQuery).
					WithArgs(int64(1), "482913").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.expired))
			}

			err := repository.Consume(context.Background(), 1, "482913")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

/*
TestVerificationTokenRepository_Check verifies classification against the latest expiry.
*/
func TestVerificationTokenRepository_Check(t *testing.T) {
	query := regexp.QuoteMeta("SELECT MAX(expiresat) FROM users.verificationtoken")
	future := storeNow.Add(time.Second)
	boundary := storeNow

	tests := []struct {
		name    string
		expires *time.Time
		want    error
	}{
		{"valid", &future, nil},
		{"expired at boundary", &boundary, auth.ErrTokenExpired},
		{"missing", nil, auth.ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repository := auth.NewVerificationTokenRepository(mock)
			repository.SetClock(fixedNow)

			mock.ExpectQuery(query).
				WithArgs(int64(1), "482913").
				WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(tt.expires))

			err := repository.Check(context.Background(), 1, "482913")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

/*
TestVerificationTokenRepository_Maintenance verifies lookup, single use deletion and sweeping.
*/
func TestVerificationTokenRepository_Maintenance(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewVerificationTokenRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE memberid = $1 AND payload = $2")).
		WithArgs(int64(1), "482913").
		WillReturnRows(pgxmock.NewRows([]string{"id", "memberid", "payload", "expiresat", "createdat"}).
			AddRow(int64(11), int64(1), "482913", storeNow, storeNow))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users.verificationtoken WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users.verificationtoken WHERE memberid = $1")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users.verificationtoken WHERE expiresat < $1")).
		WithArgs(storeNow).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	token, err := repository.FindLatest(ctx, 1, "482913")
	require.NoError(t, err)
	assert.Equal(t, int64(1), token.MemberID)

	assert.ErrorIs(t, repository.ConsumeByID(ctx, 11), auth.ErrTokenNotFound)
	assert.NoError(t, repository.PurgeAll(ctx, 1))

	removed, err := repository.DeleteExpired(ctx, storeNow)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
}

// # Password Reset Repository

var (
	consumeByID    = regexp.QuoteMeta(`DELETE FROM users.verificationtoken WHERE id = $1`)
	updatePassword = regexp.QuoteMeta(`UPDATE users.member SET passwordhash = $2`)
	purgeTokens    = regexp.QuoteMeta(`DELETE FROM users.verificationtoken WHERE memberid = $1`)
)

/*
TestPasswordResetRepository_Reset verifies consume, update and purge share one
transaction and that a failed step leaves the code in place.
*/
func TestPasswordResetRepository_Reset(t *testing.T) {
	ctx := context.Background()

	newRepository := func(mock pgxmock.PgxPoolIface) *auth.PostgresPasswordResetRepository {
		repository := auth.NewPasswordResetRepository(mock)
		repository.SetClock(fixedNow)
		return repository
	}

	t.Run("commits", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(consumeByID).WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(updatePassword).WithArgs(int64(1), "new-hash", storeNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(purgeTokens).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectCommit()

		require.NoError(t, newRepository(mock).Reset(ctx, 11, 1, "new-hash"))
	})

	t.Run("rolls back when the code is already consumed", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(consumeByID).WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		err := newRepository(mock).Reset(ctx, 11, 1, "new-hash")
		assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	})

	t.Run("rolls back the consume when the update fails", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(consumeByID).WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(updatePassword).WithArgs(int64(1), "new-hash", storeNow).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := newRepository(mock).Reset(ctx, 11, 1, "new-hash")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres_password_reset_repo_reset_failed")
	})

	t.Run("rolls back a vanished member", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(consumeByID).WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(updatePassword).WithArgs(int64(1), "new-hash", storeNow).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := newRepository(mock).Reset(ctx, 11, 1, "new-hash")
		assert.ErrorIs(t, err, auth.ErrMemberNotFound)
	})
}
