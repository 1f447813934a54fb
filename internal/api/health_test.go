// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/api"
	redisstore "github.com/taibuivan/agora/internal/platform/redis"
)

/*
TestReadiness verifies readiness reports each dependency and degrades on failure.
*/
func TestReadiness(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := func(ctx context.Context) error { return redisstore.Ping(ctx, client) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		database api.Checker
		status   int
		want     string
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ready"},
		{"degraded", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
				CheckDatabase: tt.database,
				CheckCache:    cache,
			}, logger)

			recorder := httptest.NewRecorder()
			liveness(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, recorder.Code)

			recorder = httptest.NewRecorder()
			readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, recorder.Code)

			var envelope struct {
				Data struct {
					Status string `json:"status"`
					Checks []struct {
						Name string `json:"name"`
						OK   bool   `json:"ok"`
					} `json:"checks"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
			assert.Equal(t, tt.want, envelope.Data.Status)
			require.Len(t, envelope.Data.Checks, 2)
			assert.True(t, envelope.Data.Checks[1].OK)
		})
	}
}
