// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/platform/constants"
	"github.com/taibuivan/agora/internal/platform/middleware"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/account"
)

/*
TestHandler_Me verifies the self-service endpoints behind authentication.
*/
func TestHandler_Me(t *testing.T) {
	seeded := seedMembers()
	members := newFakeMembers(seeded...)
	service, _ := newService(members)

	issuer, err := sec.NewTokenService(sec.TokenConfig{
		Secret:     "test-secret",
		Issuer:     "agora.test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	pair, err := issuer.Issue(seeded[0].Identity())
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(issuer))
	router.Mount("/members", account.NewHandler(service).Routes())

	send := func(method string, body any, authorized bool) *httptest.ResponseRecorder {
		var payload bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&payload).Encode(body))
		}
		request := httptest.NewRequest(method, "/members/me", &payload)
		if authorized {
			request.Header.Set(constants.HeaderAuthorization, "Bearer "+pair.AccessToken)
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, nil, false).Code)

	recorder := send(http.MethodGet, nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"alice"`)

	recorder = send(http.MethodPatch, map[string]string{"phone": "12"}, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = send(http.MethodPatch, map[string]string{"display_name": "Bob"}, true)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	recorder = send(http.MethodPatch, map[string]string{"display_name": "Alicia"}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"Alicia"`)

	assert.Equal(t, http.StatusNoContent, send(http.MethodDelete, nil, true).Code)
	assert.Equal(t, http.StatusNotFound, send(http.MethodGet, nil, true).Code)
}
