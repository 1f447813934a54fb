// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/agora/internal/users/auth"
	"github.com/taibuivan/agora/pkg/pointer"
)

// # Service Layer

// Service orchestrates profile edits and withdrawal for authenticated members.
type Service struct {
	memberRepository     MemberStore
	withdrawalRepository WithdrawalRepository
	logger               *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(members MemberStore, withdrawals WithdrawalRepository, logger *slog.Logger) *Service {
	return &Service{
		memberRepository:     members,
		withdrawalRepository: withdrawals,
		logger:               logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the private profile of a member.

Parameters:
  - context: context.Context
  - memberID: int64

Returns:
  - *auth.Member: The loaded member
  - error: auth.ErrMemberNotFound or storage failures
*/
func (service *Service) GetProfile(context context.Context, memberID int64) (*auth.Member, error) {
	member, err := service.memberRepository.FindByID(context, memberID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return member, nil
}

// UpdateProfileInput holds the optional profile changes. Nil fields are left untouched.
type UpdateProfileInput struct {
	DisplayName *string
	Phone       *string
	AvatarURL   *string
}

/*
UpdateProfile applies a partial set of changes to a member's profile.

Description: Display name and phone stay unique across members. A value equal
to the current one is not re-checked.

Parameters:
  - context: context.Context
  - memberID: int64
  - input: UpdateProfileInput

Returns:
  - *auth.Member: The updated profile
  - error: ErrUsernameAlreadyExists, ErrTelAlreadyExists or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, memberID int64, input UpdateProfileInput) (*auth.Member, error) {
	member, err := service.memberRepository.FindByID(context, memberID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_lookup_failed: %w", err)
	}

	displayName := pointer.Fallback(input.DisplayName, member.DisplayName)
	if displayName != member.DisplayName {
		taken, err := service.memberRepository.ExistsByDisplayName(context, displayName)
		if err != nil {
			return nil, fmt.Errorf("account_service_display_name_check_failed: %w", err)
		}
		if taken {
			return nil, auth.ErrUsernameAlreadyExists
		}
		member.DisplayName = displayName
	}

	phone := pointer.Fallback(input.Phone, member.Phone)
	if phone != member.Phone {
		taken, err := service.memberRepository.ExistsByPhone(context, phone)
		if err != nil {
			return nil, fmt.Errorf("account_service_phone_check_failed: %w", err)
		}
		if taken {
			return nil, auth.ErrTelAlreadyExists
		}
		member.Phone = phone
	}

	member.AvatarURL = pointer.Fallback(input.AvatarURL, member.AvatarURL)

	// The unique constraints still decide a race between two editors
	if err := service.memberRepository.UpdateProfile(context, member); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.logger.Info("member_profile_updated", slog.Int64("member_id", memberID))

	return member, nil
}

// # Withdrawal

/*
Withdraw permanently removes a member.

Description: Deletes the member row, their refresh session and any pending
verification codes. Outstanding access tokens stay valid until they expire.

Parameters:
  - context: context.Context
  - memberID: int64

Returns:
  - error: auth.ErrMemberNotFound or storage failures
*/
func (service *Service) Withdraw(context context.Context, memberID int64) error {
	member, err := service.memberRepository.FindByID(context, memberID)
	if err != nil {
		return fmt.Errorf("account_service_withdraw_lookup_failed: %w", err)
	}

	if err := service.withdrawalRepository.Withdraw(context, member); err != nil {
		return fmt.Errorf("account_service_withdraw_failed: %w", err)
	}

	service.logger.Warn("member_withdrawn",
		slog.Int64("member_id", member.ID),
		slog.String("account_handle", member.AccountHandle),
	)

	return nil
}
