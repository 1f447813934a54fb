// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Federated Identity Resolution

// FederatedResolver maps a federated profile onto exactly one local member.
type FederatedResolver struct {
	members MemberRepository
	digits  DigitSource
	logger  *slog.Logger
}

// NewFederatedResolver constructs a resolver over the member repository.
func NewFederatedResolver(members MemberRepository, logger *slog.Logger) *FederatedResolver {
	return &FederatedResolver{members: members, digits: randomDigits, logger: logger}
}

/*
Resolve returns the member for a federated profile, creating it on first sight.

Description: A member sharing the profile email wins first, then a member
already linked to the (provider, subject) pair. Otherwise a new verified or
unverified member is created from the profile. Existing members are returned
unmodified.

Parameters:
  - context: context.Context
  - attributes: oauth.Attributes

Returns:
  - *Member: Resolved entity
  - bool: True when the member was created by this call
  - error: Conflict sentinels or storage failures
*/
func (resolver *FederatedResolver) Resolve(context context.Context, attributes oauth.Attributes) (*Member, bool, error) {

	// Email match links the profile to an existing local account
	member, err := resolver.lookup(context, attributes)
	if err != nil || member != nil {
		return member, false, err
	}

	// First sight of this identity, build the member from the profile
	member, err = resolver.build(context, attributes)
	if err != nil {
		return nil, false, err
	}

	if err := resolver.members.Create(context, member); err != nil {

		// A concurrent first login may have created the same identity
		if errors.Is(err, ErrEmailAlreadyExists) || errors.Is(err, ErrIDAlreadyExists) {
			existing, lookupErr := resolver.lookup(context, attributes)
			if lookupErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("auth_federated_create_failed: %w", err)
	}

	resolver.logger.Info("federated_member_created",
		slog.Int64("member_id", member.ID),
		slog.String("provider", string(attributes.Provider())),
	)

	return member, true, nil
}

// lookup finds by email, then by provider subject. A nil member means no match.
func (resolver *FederatedResolver) lookup(context context.Context, attributes oauth.Attributes) (*Member, error) {
	member, err := resolver.members.FindByEmail(context, attributes.Email())
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, ErrMemberNotFound) {
		return nil, fmt.Errorf("auth_federated_find_by_email_failed: %w", err)
	}

	member, err = resolver.members.FindByProvider(context, attributes.Provider(), attributes.SubjectID())
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, ErrMemberNotFound) {
		return nil, fmt.Errorf("auth_federated_find_by_provider_failed: %w", err)
	}

	return nil, nil
}

func (resolver *FederatedResolver) build(context context.Context, attributes oauth.Attributes) (*Member, error) {
	displayName, err := resolver.displayName(context, attributes)
	if err != nil {
		return nil, err
	}

	phone, err := resolver.phone(context, attributes.Phone())
	if err != nil {
		return nil, err
	}

	provider := attributes.Provider()
	subject := attributes.SubjectID()

	return &Member{
		AccountHandle:   attributes.AccountHandle(),
		Email:           attributes.Email(),
		DisplayName:     displayName,
		Phone:           phone,
		AvatarURL:       attributes.AvatarURL(),
		IsVerified:      attributes.IsVerified(),
		Role:            sec.RoleUser,
		Provider:        &provider,
		ProviderSubject: &subject,
	}, nil
}

// displayName appends the count of same-prefixed names when the name is taken.
// Only one attempt is made; a remaining clash surfaces from Create.
func (resolver *FederatedResolver) displayName(context context.Context, attributes oauth.Attributes) (string, error) {
	name := attributes.DisplayName()
	if name == "" {
		name = attributes.AccountHandle()
	}

	taken, err := resolver.members.ExistsByDisplayName(context, name)
	if err != nil {
		return "", fmt.Errorf("auth_federated_display_name_failed: %w", err)
	}
	if !taken {
		return name, nil
	}

	count, err := resolver.members.CountByDisplayName(context, name)
	if err != nil {
		return "", fmt.Errorf("auth_federated_display_name_failed: %w", err)
	}

	return name + strconv.FormatInt(count, 10), nil
}

// phone keeps a provider number when free, otherwise draws an unused placeholder.
func (resolver *FederatedResolver) phone(context context.Context, provided string) (string, error) {
	if provided != "" {
		taken, err := resolver.members.ExistsByPhone(context, provided)
		if err != nil {
			return "", fmt.Errorf("auth_federated_phone_failed: %w", err)
		}
		if !taken {
			return provided, nil
		}
	}

	for range PhonePlaceholderAttempts {
		suffix, err := resolver.digits(PhonePlaceholderDigits)
		if err != nil {
			return "", err
		}

		candidate := PhonePlaceholderPrefix + suffix
		taken, err := resolver.members.ExistsByPhone(context, candidate)
		if err != nil {
			return "", fmt.Errorf("auth_federated_phone_failed: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrTelAlreadyExists
}
