package grpc

import (
	"context"

	"github.com/dmitrijs2005/communitykeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *Empty) (*PingResponse, error) {

	return &PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) Signup(ctx context.Context, req *SignupRequest) (*AccountResponse, error) {

	s.logger.Info(ctx, "Signup request")

	result, err := s.accounts.Signup(ctx, services.SignupRequest{
		Email:           req.Email,
		Password:        req.Password,
		Nickname:        req.Nickname,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "Signup", err)
	}

	s.logger.Info(ctx, "Signed up", "account_id", result.ID)
	return toAccountResponse(result), nil

}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {

	result, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "Login", err)
	}

	return toAuthResponse(result), nil

}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {

	result, err := s.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "Refresh", err)
	}

	return toAuthResponse(result), nil

}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*Empty, error) {

	if err := s.accounts.Logout(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, "Logout", err)
	}

	return &Empty{}, nil

}

func (s *GRPCServer) accountID(ctx context.Context) (string, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthorized")
	}
	return id, nil
}

func (s *GRPCServer) GetAccount(ctx context.Context, req *Empty) (*AccountResponse, error) {

	id, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, "GetAccount", err)
	}

	return toAccountResponse(result), nil

}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*AccountResponse, error) {

	id, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.accounts.UpdateProfile(ctx, id, services.ProfileUpdate{
		Nickname:        req.Nickname,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateProfile", err)
	}

	return toAccountResponse(result), nil

}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*Empty, error) {

	id, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.ChangePassword(ctx, id, req.NewPassword, req.ConfirmPassword); err != nil {
		return nil, s.toStatus(ctx, "ChangePassword", err)
	}

	return &Empty{}, nil

}

func (s *GRPCServer) Deactivate(ctx context.Context, req *Empty) (*Empty, error) {

	id, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Deactivate(ctx, id); err != nil {
		return nil, s.toStatus(ctx, "Deactivate", err)
	}

	s.logger.Info(ctx, "Account deactivated", "account_id", id)
	return &Empty{}, nil

}

func (s *GRPCServer) Restore(ctx context.Context, req *Empty) (*AccountResponse, error) {

	id, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.accounts.Restore(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, "Restore", err)
	}

	return toAccountResponse(result), nil

}
