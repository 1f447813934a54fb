// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/users/account"
	"github.com/taibuivan/agora/internal/users/auth"
)

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

var (
	deleteSessions = regexp.QuoteMeta(`DELETE FROM users.refreshsession WHERE accounthandle = $1`)
	deleteTokens   = regexp.QuoteMeta(`DELETE FROM users.verificationtoken WHERE memberid = $1`)
	deleteMember   = regexp.QuoteMeta(`DELETE FROM users.member WHERE id = $1`)
)

/*
TestWithdrawalRepository_Withdraw verifies the three deletes share one transaction.
*/
func TestWithdrawalRepository_Withdraw(t *testing.T) {
	member := &auth.Member{ID: 7, AccountHandle: "tester"}

	t.Run("commits", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteSessions).WithArgs("tester").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(deleteTokens).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(deleteMember).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		require.NoError(t, account.NewWithdrawalRepository(mock).Withdraw(context.Background(), member))
	})

	t.Run("rolls back a vanished member", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteSessions).WithArgs("tester").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(deleteTokens).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(deleteMember).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		err := account.NewWithdrawalRepository(mock).Withdraw(context.Background(), member)
		assert.ErrorIs(t, err, auth.ErrMemberNotFound)
	})

	t.Run("rolls back on storage failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteSessions).WithArgs("tester").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := account.NewWithdrawalRepository(mock).Withdraw(context.Background(), member)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres_withdrawal_repo_withdraw_failed")
	})
}
