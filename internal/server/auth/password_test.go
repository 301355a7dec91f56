package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.HashPassword("Secr3t!pw")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!pw", hash)

	assert.True(t, h.VerifyPassword("Secr3t!pw", hash))
	assert.False(t, h.VerifyPassword("wrong", hash))
}

func TestHasher_Empty(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHasher_MalformedHash(t *testing.T) {
	assert.False(t, NewHasher(bcrypt.MinCost).VerifyPassword("pw", "not-a-hash"))
}

func TestNewHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}
