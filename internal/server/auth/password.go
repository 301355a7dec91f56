package auth

import (
	"errors"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("empty password")

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a bcrypt Hasher. Costs outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	b := []byte(plain)
	defer common.WipeByteArray(b)

	hash, err := bcrypt.GenerateFromPassword(b, h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash. Malformed hashes never match.
func (h *Hasher) VerifyPassword(plain, hash string) bool {
	b := []byte(plain)
	defer common.WipeByteArray(b)

	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}
