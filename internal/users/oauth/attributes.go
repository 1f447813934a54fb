// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth adapts third-party identity providers to Agora.

Each provider returns its profile in its own shape:

  - GOOGLE: a flat map.
  - NAVER: the profile nested under "response".
  - KAKAO: the email under "kakao_account" and the nickname one level deeper
    under "kakao_account.profile".

[Parse] selects the adapter for a provider and exposes the profile through the
single [Attributes] capability. [Client] drives the authorization code flow
and fetches the raw profile.
*/
package oauth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/agora/internal/platform/apperr"
)

// # Providers

// Provider tags a federated identity source.
type Provider string

const (
	ProviderGoogle Provider = "GOOGLE"
	ProviderKakao  Provider = "KAKAO"
	ProviderNaver  Provider = "NAVER"
)

var (
	// ErrUnsupportedProvider is returned for a provider tag outside the supported set.
	ErrUnsupportedProvider = apperr.New(http.StatusBadRequest, "UNSUPPORTED_PROVIDER", "Login provider is not supported")

	// ErrIncompleteProfile is returned when a provider profile lacks a subject or email.
	ErrIncompleteProfile = apperr.New(http.StatusBadGateway, "INCOMPLETE_FEDERATED_PROFILE", "Login provider returned an incomplete profile")
)

// ParseProvider resolves a case-insensitive provider tag such as "kakao".
func ParseProvider(value string) (Provider, error) {
	switch provider := Provider(strings.ToUpper(strings.TrimSpace(value))); provider {
	case ProviderGoogle, ProviderKakao, ProviderNaver:
		return provider, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

// # Capability

// Attributes is the canonical view of a federated profile.
type Attributes interface {
	Provider() Provider
	SubjectID() string
	Email() string
	DisplayName() string
	AvatarURL() string
	// AccountHandle is "<provider>_<subject>" in lower case, unique across providers.
	AccountHandle() string
	IsVerified() bool
	// Phone is empty when the provider does not share one.
	Phone() string
}

// Parse builds the [Attributes] adapter for provider from its raw profile.
// Numbers in raw should be decoded as [json.Number] to keep large ids exact.
func Parse(provider Provider, raw map[string]any) (Attributes, error) {
	var attributes Attributes

	switch provider {
	case ProviderGoogle:
		attributes = googleAttributes{raw: raw}
	case ProviderNaver:
		attributes = naverAttributes{response: mapValue(raw, "response")}
	case ProviderKakao:
		account := mapValue(raw, "kakao_account")
		attributes = kakaoAttributes{raw: raw, account: account, profile: mapValue(account, "profile")}
	default:
		return nil, ErrUnsupportedProvider
	}

	if attributes.SubjectID() == "" || attributes.Email() == "" {
		return nil, fmt.Errorf("oauth_parse_%s: %w", strings.ToLower(string(provider)), ErrIncompleteProfile)
	}

	return attributes, nil
}

// # Google

type googleAttributes struct {
	raw map[string]any
}

func (a googleAttributes) Provider() Provider    { return ProviderGoogle }
func (a googleAttributes) SubjectID() string     { return stringValue(a.raw, "sub") }
func (a googleAttributes) Email() string         { return stringValue(a.raw, "email") }
func (a googleAttributes) DisplayName() string   { return displayName(stringValue(a.raw, "name")) }
func (a googleAttributes) AvatarURL() string     { return stringValue(a.raw, "picture") }
func (a googleAttributes) AccountHandle() string { return accountHandle(ProviderGoogle, a.SubjectID()) }
func (a googleAttributes) IsVerified() bool      { return boolValue(a.raw, "email_verified") }
func (a googleAttributes) Phone() string         { return "" }

// # Naver

type naverAttributes struct {
	response map[string]any
}

func (a naverAttributes) Provider() Provider { return ProviderNaver }
func (a naverAttributes) SubjectID() string  { return stringValue(a.response, "id") }
func (a naverAttributes) Email() string      { return stringValue(a.response, "email") }

func (a naverAttributes) DisplayName() string {
	if nickname := stringValue(a.response, "nickname"); nickname != "" {
		return displayName(nickname)
	}
	return displayName(stringValue(a.response, "name"))
}

func (a naverAttributes) AvatarURL() string     { return stringValue(a.response, "profile_image") }
func (a naverAttributes) AccountHandle() string { return accountHandle(ProviderNaver, a.SubjectID()) }

// Naver only releases addresses its members have confirmed.
func (a naverAttributes) IsVerified() bool { return true }

func (a naverAttributes) Phone() string { return digitsOnly(stringValue(a.response, "mobile")) }

// # Kakao

type kakaoAttributes struct {
	raw     map[string]any
	account map[string]any
	profile map[string]any
}

func (a kakaoAttributes) Provider() Provider    { return ProviderKakao }
func (a kakaoAttributes) SubjectID() string     { return stringValue(a.raw, "id") }
func (a kakaoAttributes) Email() string         { return stringValue(a.account, "email") }
func (a kakaoAttributes) DisplayName() string   { return displayName(stringValue(a.profile, "nickname")) }
func (a kakaoAttributes) AvatarURL() string     { return stringValue(a.profile, "profile_image_url") }
func (a kakaoAttributes) AccountHandle() string { return accountHandle(ProviderKakao, a.SubjectID()) }
func (a kakaoAttributes) IsVerified() bool      { return boolValue(a.account, "is_email_verified") }
func (a kakaoAttributes) Phone() string         { return "" }

// # Helpers

func accountHandle(provider Provider, subject string) string {
	return strings.ToLower(string(provider)) + "_" + subject
}

func displayName(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func mapValue(data map[string]any, key string) map[string]any {
	if nested, ok := data[key].(map[string]any); ok {
		return nested
	}
	return nil
}

// stringValue reads strings and numbers alike; provider ids are numeric for Kakao.
func stringValue(data map[string]any, key string) string {
	switch value := data[key].(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}

func boolValue(data map[string]any, key string) bool {
	switch value := data[key].(type) {
	case bool:
		return value
	case string:
		parsed, _ := strconv.ParseBool(value)
		return parsed
	default:
		return false
	}
}

func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}
