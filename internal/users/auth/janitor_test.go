// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/users/auth"
)

/*
TestJanitor_Sweep verifies only codes older than the grace window are removed.
*/
func TestJanitor_Sweep(t *testing.T) {
	clock := newClock()
	tokens := newFakeTokens(clock)
	ctx := context.Background()

	_, err := tokens.Issue(ctx, 1, "111111", time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, err = tokens.Issue(ctx, 1, "222222", time.Minute)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	janitor := auth.NewJanitor(tokens, time.Hour, time.Hour, discardLogger())
	janitor.SetClock(clock.Now)

	removed, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, tokens.count())
}

/*
TestJanitor_Run verifies the loop stops when its context is cancelled.
*/
func TestJanitor_Run(t *testing.T) {
	janitor := auth.NewJanitor(newFakeTokens(newClock()), time.Millisecond, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
