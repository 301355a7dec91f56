package grpc

import (
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/server/services"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profile_image_url"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Nickname        *string `json:"nickname,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type AccountResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Nickname        string    `json:"nickname"`
	ProfileImageURL string    `json:"profile_image_url"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

type AuthResponse struct {
	AccessToken     string           `json:"access_token"`
	RefreshToken    string           `json:"refresh_token"`
	TokenType       string           `json:"token_type"`
	ExpiresIn       int64            `json:"expires_in"`
	Account         *AccountResponse `json:"account,omitempty"`
	AccountRestored bool             `json:"account_restored"`
}

func toAccountResponse(a *services.AccountSummary) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:              a.ID,
		Email:           a.Email,
		Nickname:        a.Nickname,
		ProfileImageURL: a.ProfileImageURL,
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
	}
}

func toAuthResponse(r *services.AuthResult) *AuthResponse {
	return &AuthResponse{
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		TokenType:       r.TokenType,
		ExpiresIn:       r.ExpiresIn,
		Account:         toAccountResponse(r.Account),
		AccountRestored: r.Restored,
	}
}
