// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles self-service management of an existing member.

It lets an authenticated member read and edit their own profile and withdraw
from the service. Credentials, sessions and verification codes belong to the
auth package; account only reuses its repositories.

# Architecture

  - Domain: Member entities come from the auth package.
  - Withdrawal: Removes the member together with every refresh session and
    verification code in a single transaction.
*/
package account

import (
	"context"

	"github.com/taibuivan/agora/internal/users/auth"
)

// # Field Names

const (
	FieldDisplayName = "display_name"
	FieldPhone       = "phone"
	FieldAvatarURL   = "avatar_url"
)

// AvatarURLMaxLength bounds the stored avatar location.
const AvatarURLMaxLength = 512

// # Repository Contracts

// MemberStore is the subset of [auth.MemberRepository] the account service needs.
type MemberStore interface {
	FindByID(context context.Context, id int64) (*auth.Member, error)
	ExistsByDisplayName(context context.Context, displayName string) (bool, error)
	ExistsByPhone(context context.Context, phone string) (bool, error)
	UpdateProfile(context context.Context, member *auth.Member) error
}

// WithdrawalRepository removes a member and everything issued to them.
type WithdrawalRepository interface {
	/*
		Withdraw deletes the member, their refresh session and their verification codes.

		Parameters:
		  - context: context.Context
		  - member: *auth.Member (must be loaded)

		Returns:
		  - error: auth.ErrMemberNotFound or storage failures
	*/
	Withdraw(context context.Context, member *auth.Member) error
}
