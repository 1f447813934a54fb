// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taibuivan/agora/internal/platform/constants"
	"github.com/taibuivan/agora/internal/platform/middleware"
	requestutil "github.com/taibuivan/agora/internal/platform/request"
	"github.com/taibuivan/agora/internal/platform/respond"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/platform/validate"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Definitions & Constructors

// FederatedClient drives the authorization code flow of the federated providers.
type FederatedClient interface {
	Enabled(provider oauth.Provider) bool
	AuthCodeURL(provider oauth.Provider, state string) (string, error)
	FetchAttributes(context context.Context, provider oauth.Provider, code string) (oauth.Attributes, error)
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Credential entry points (sign-up, login, federated login), session rotation,
// email verification and anonymous password recovery.
type Handler struct {
	authService *Service
	federated   FederatedClient
}

// NewHandler constructs a new [Handler]. federated may be nil when no provider is configured.
func NewHandler(service *Service, federated FederatedClient) *Handler {
	return &Handler{authService: service, federated: federated}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup, /login, /refresh, /logout
//   - POST /verify-email/send, /verify-email (authenticated)
//   - POST /verify-email/send-anonymous, /authorization-key
//   - PUT  /password/anonymous
//   - POST /password/verify (authenticated)
//   - GET  /oauth/{provider}, /oauth/{provider}/callback
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signUp)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/verify-email/send-anonymous", handler.sendVerifyEmailAnonymous)
	router.Post("/authorization-key", handler.authorizationKey)
	router.Put("/password/anonymous", handler.updateAnonymousPassword)
	router.Get("/oauth/{provider}", handler.oauthRedirect)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/verify-email/send", handler.sendVerifyEmail)
		r.Post("/verify-email", handler.verifyEmail)
		r.Post("/password/verify", handler.verifyPassword)
	})

	return router
}

// # Request Payloads

type signUpRequest struct {
	AccountHandle string `json:"account_handle"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	DisplayName   string `json:"display_name"`
	Phone         string `json:"phone"`
}

type loginRequest struct {
	AccountHandle string `json:"account_handle"`
	Password      string `json:"password"`
}

type verifyEmailRequest struct {
	Payload string `json:"payload"`
}

type anonymousIdentityRequest struct {
	AccountHandle string `json:"account_handle"`
	Email         string `json:"email"`
}

type authorizationKeyRequest struct {
	AccountHandle string `json:"account_handle"`
	Email         string `json:"email"`
	Payload       string `json:"payload"`
}

type anonymousPasswordRequest struct {
	AuthorizationKey   string `json:"authorization_key"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type authorizationKeyResponse struct {
	AuthorizationKey string `json:"authorization_key"`
}

type federatedLoginResponse struct {
	Tokens sec.TokenPair `json:"tokens"`
	Member *Member       `json:"member"`
}

/*
SignUp handles the creation of a new local account.

POST /api/v1/auth/signup

Request:
  - Body: signUpRequest (AccountHandle, Email, Password, DisplayName, Phone)

Response:
  - 201: Member: Created member profile
  - 400: VALIDATION_ERROR
  - 409: ID/EMAIL/USERNAME/TEL_ALREADY_EXISTS
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccountHandle, input.AccountHandle).
		AccountHandle(FieldAccountHandle, input.AccountHandle).
		MaxLen(FieldAccountHandle, input.AccountHandle, AccountHandleMaxLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxLen(FieldPassword, input.Password, PasswordMaxLength).
		Required(FieldDisplayName, input.DisplayName).
		MaxLen(FieldDisplayName, input.DisplayName, DisplayNameMaxLength).
		Required(FieldPhone, input.Phone).
		Phone(FieldPhone, input.Phone)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	member, err := handler.authService.SignUp(request.Context(), SignUpInput{
		AccountHandle: input.AccountHandle,
		Email:         input.Email,
		Password:      input.Password,
		DisplayName:   input.DisplayName,
		Phone:         input.Phone,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, member)
}

/*
Login authenticates a member and establishes a session.

POST /api/v1/auth/login

Response:
  - 200: TokenPair
  - 401: INCORRECT_PASSWORD
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccountHandle, input.AccountHandle)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		AccountHandle: input.AccountHandle,
		Password:      input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Refresh rotates the session presented in the Refresh header.

POST /api/v1/auth/refresh

Request:
  - Header: Refresh: Bearer <refresh token>

Response:
  - 200: TokenPair
  - 401: INVALID_TOKEN, REFRESH_TOKEN_NOT_FOUND
  - 404: MEMBER_NOT_FOUND
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	pair, err := handler.authService.Refresh(request.Context(), request.Header.Get(constants.HeaderRefresh))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// logout discards the sessions of the account named by the Refresh header.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.Logout(request.Context(), request.Header.Get(constants.HeaderRefresh)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
SendVerifyEmail mails a verification code to the authenticated member.

POST /api/v1/auth/verify-email/send

Response:
  - 202: Accepted
  - 409: ALREADY_VERIFIED
  - 429: VERIFY_EMAIL_COOLDOWN (with Retry-After)
*/
func (handler *Handler) sendVerifyEmail(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SendVerifyEmail(request.Context(), memberID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]string{
		constants.FieldMessage: "Verification code sent",
	})
}

/*
VerifyEmail confirms the authenticated member's email ownership.

POST /api/v1/auth/verify-email

Request:
  - Body: verifyEmailRequest (Payload)

Response:
  - 200: Success
  - 404: TOKEN_NOT_FOUND
  - 409: ALREADY_VERIFIED
  - 410: TOKEN_EXPIRED
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldPayload, input.Payload).Digits(FieldPayload, input.Payload, VerificationCodeDigits)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), memberID, input.Payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: "Email verified successfully",
	})
}

// sendVerifyEmailAnonymous mails a code to the member matching handle and email.
func (handler *Handler) sendVerifyEmailAnonymous(writer http.ResponseWriter, request *http.Request) {
	var input anonymousIdentityRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccountHandle, input.AccountHandle).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SendVerifyEmailAnonymous(request.Context(), input.AccountHandle, input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]string{
		constants.FieldMessage: "Verification code sent",
	})
}

/*
AuthorizationKey exchanges a verification code for an authorization key.

POST /api/v1/auth/authorization-key

Request:
  - Body: authorizationKeyRequest (AccountHandle, Email, Payload)

Response:
  - 200: authorizationKeyResponse
  - 404: MEMBER_NOT_FOUND, TOKEN_NOT_FOUND
  - 410: TOKEN_EXPIRED
*/
func (handler *Handler) authorizationKey(writer http.ResponseWriter, request *http.Request) {
	var input authorizationKeyRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccountHandle, input.AccountHandle).
		Required(FieldEmail, input.Email).
		Required(FieldPayload, input.Payload).
		Digits(FieldPayload, input.Payload, VerificationCodeDigits)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	key, err := handler.authService.GetAuthorizationKey(request.Context(), AuthorizationKeyInput{
		AccountHandle: input.AccountHandle,
		Email:         input.Email,
		Payload:       input.Payload,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, authorizationKeyResponse{AuthorizationKey: key})
}

/*
UpdateAnonymousPassword completes the anonymous password recovery flow.

PUT /api/v1/auth/password/anonymous

Response:
  - 204: Password replaced
  - 400: PASSWORD_CONFIRM_FAIL
  - 404: TOKEN_NOT_FOUND
  - 410: TOKEN_EXPIRED
*/
func (handler *Handler) updateAnonymousPassword(writer http.ResponseWriter, request *http.Request) {
	var input anonymousPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAuthorizationKey, input.AuthorizationKey).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, PasswordMinLength).
		MaxLen(FieldNewPassword, input.NewPassword, PasswordMaxLength).
		Required(FieldConfirmNewPassword, input.ConfirmNewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.UpdateAnonymousPassword(request.Context(), input.AuthorizationKey, PasswordResetInput{
		NewPassword:        input.NewPassword,
		ConfirmNewPassword: input.ConfirmNewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// verifyPassword re-confirms the authenticated member's password.
func (handler *Handler) verifyPassword(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyPassword(request.Context(), memberID, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Federated Login

// provider resolves the {provider} path segment to an enabled provider.
func (handler *Handler) provider(request *http.Request) (oauth.Provider, error) {
	provider, err := oauth.ParseProvider(requestutil.Param(request, "provider"))
	if err != nil {
		return "", err
	}

	if handler.federated == nil || !handler.federated.Enabled(provider) {
		return "", oauth.ErrUnsupportedProvider
	}

	return provider, nil
}

/*
OAuthRedirect starts a federated login.

GET /api/v1/auth/oauth/{provider}

Description: Sets a random state cookie scoped to the callback and redirects
to the provider's consent page.

Response:
  - 302: Redirect to the provider
  - 400: UNSUPPORTED_PROVIDER
*/
func (handler *Handler) oauthRedirect(writer http.ResponseWriter, request *http.Request) {
	provider, err := handler.provider(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	state := uuid.NewString()
	target, err := handler.federated.AuthCodeURL(provider, state)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    state,
		Path:     request.URL.Path + "/callback",
		MaxAge:   int(constants.OAuthStateCookieTTL.Seconds()),
		Secure:   request.TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(writer, request, target, http.StatusFound)
}

/*
OAuthCallback completes a federated login.

GET /api/v1/auth/oauth/{provider}/callback?code=&state=

Response:
  - 200: federatedLoginResponse
  - 400: UNSUPPORTED_PROVIDER
  - 401: FEDERATED_LOGIN_FAILED (state mismatch, denied consent, exchange failure)
  - 502: INCOMPLETE_FEDERATED_PROFILE
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	provider, err := handler.provider(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()
	cookie, cookieErr := request.Cookie(constants.OAuthStateCookieName)

	// The state cookie is single use
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    "",
		Path:     request.URL.Path,
		MaxAge:   -1,
		Secure:   request.TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	state := query.Get("state")
	if cookieErr != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		respond.Error(writer, request, oauth.ErrExchangeFailed)
		return
	}

	code := query.Get("code")
	if code == "" {
		respond.Error(writer, request, oauth.ErrExchangeFailed)
		return
	}

	attributes, err := handler.federated.FetchAttributes(request.Context(), provider, code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, member, err := handler.authService.FederatedLogin(request.Context(), attributes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, federatedLoginResponse{Tokens: pair, Member: member})
}
