// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the router's parameter extraction and common body decoding
patterns, ensuring consistent error handling.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/agora/internal/platform/apperr"
	"github.com/taibuivan/agora/internal/platform/ctxutil"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/platform/validate"
)

// maxBodyBytes caps JSON bodies; identity payloads are small.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to cap the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param retrieves a named URL parameter from the request.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
RequiredMember ensures the request is authenticated and returns the access claims.

Returns:
  - *sec.AccessClaims: The authenticated member claims
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredMember(request *http.Request) (*sec.AccessClaims, error) {
	claims := ctxutil.GetMember(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

/*
RequiredMemberID returns the numeric id of the authenticated member.

Returns:
  - int64: Member id
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredMemberID(request *http.Request) (int64, error) {
	claims, err := RequiredMember(request)
	if err != nil {
		return 0, err
	}
	return claims.ID, nil
}
