// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/agora/internal/platform/middleware"
	requestutil "github.com/taibuivan/agora/internal/platform/request"
	"github.com/taibuivan/agora/internal/platform/respond"
	"github.com/taibuivan/agora/internal/platform/validate"
	"github.com/taibuivan/agora/internal/users/auth"
)

// Handler implements the HTTP layer for member self-service.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
// Every route requires an authenticated member.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/me", handler.getMe)
	router.Patch("/me", handler.updateMe)
	router.Delete("/me", handler.deleteMe)

	return router
}

/*
GET /api/v1/members/me.

Response:
  - 200: Member: The authenticated member's profile
  - 401: UNAUTHORIZED
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	member, err := handler.accountService.GetProfile(request.Context(), memberID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, member)
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
	AvatarURL   *string `json:"avatar_url"`
}

/*
PATCH /api/v1/members/me.

Request:
  - Body: updateMeRequest (partial)

Response:
  - 200: Member: The updated profile
  - 400: VALIDATION_ERROR
  - 409: USERNAME_ALREADY_EXISTS, TEL_ALREADY_EXISTS
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.DisplayName != nil {
		validator.Required(FieldDisplayName, *input.DisplayName).
			MaxLen(FieldDisplayName, *input.DisplayName, auth.DisplayNameMaxLength)
	}
	if input.Phone != nil {
		validator.Phone(FieldPhone, *input.Phone)
	}
	if input.AvatarURL != nil {
		validator.MaxLen(FieldAvatarURL, *input.AvatarURL, AvatarURLMaxLength)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	member, err := handler.accountService.UpdateProfile(request.Context(), memberID, UpdateProfileInput{
		DisplayName: input.DisplayName,
		Phone:       input.Phone,
		AvatarURL:   input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, member)
}

/*
DELETE /api/v1/members/me.

Description: Withdraws the authenticated member.

Response:
  - 204: No Content
  - 401: UNAUTHORIZED
  - 404: MEMBER_NOT_FOUND
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	memberID, err := requestutil.RequiredMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Withdraw(request.Context(), memberID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
