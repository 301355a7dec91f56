package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the account the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// GenerateToken signs an HS256 access token for accountID that expires
// validityDuration after issuedAt.
func GenerateToken(accountID, email string, secretKey []byte, issuedAt time.Time, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validityDuration)),
		},
		AccountID: accountID,
		Email:     email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetAccountIDFromToken validates tokenString and returns the account id it
// carries. Expired tokens yield common.ErrTokenExpired.
func GetAccountIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", err
	}

	if !token.Valid || claims.AccountID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.AccountID, nil
}

// Signer issues access tokens with a fixed secret and lifetime.
type Signer struct {
	secretKey []byte
	validity  time.Duration
	now       func() time.Time
}

// NewSigner returns a Signer for the given secret and access-token lifetime.
func NewSigner(secretKey []byte, validity time.Duration) *Signer {
	return &Signer{secretKey: secretKey, validity: validity, now: time.Now}
}

func (s *Signer) IssueAccessToken(accountID, email string) (string, error) {
	return GenerateToken(accountID, email, s.secretKey, s.now(), s.validity)
}

// ExpirySeconds is the access-token lifetime reported to clients.
func (s *Signer) ExpirySeconds() int64 {
	return int64(s.validity / time.Second)
}

func (s *Signer) AccountIDFromToken(token string) (string, error) {
	return GetAccountIDFromToken(token, s.secretKey)
}
