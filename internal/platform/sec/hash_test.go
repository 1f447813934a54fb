// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/agora/internal/platform/sec"
)

/*
TestPasswordHash verifies hashing is salted and verification is exact.
*/
func TestPasswordHash(t *testing.T) {
	first, err := sec.HashPassword("pw123")
	require.NoError(t, err)

	second, err := sec.HashPassword("pw123")
	require.NoError(t, err)

	assert.NotEqual(t, "pw123", first)
	assert.NotEqual(t, first, second, "each digest carries its own salt")

	assert.True(t, sec.CheckPasswordHash("pw123", first))
	assert.True(t, sec.CheckPasswordHash("pw123", second))
	assert.False(t, sec.CheckPasswordHash("pw124", first))
	assert.False(t, sec.CheckPasswordHash("pw123", ""))
	assert.False(t, sec.CheckPasswordHash("pw123", "not-a-bcrypt-hash"))
}

/*
TestRole verifies the role hierarchy.
*/
func TestRole(t *testing.T) {
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleUser))
	assert.False(t, sec.RoleUser.AtLeast(sec.RoleAdmin))
	assert.True(t, sec.RoleUser.Valid())
	assert.False(t, sec.Role("moderator").Valid())
}
