package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/communitykeeper/internal/logging"
	"github.com/dmitrijs2005/communitykeeper/internal/server/services"
	"google.golang.org/grpc"
)

// AccountService is the lifecycle API the handlers call.
type AccountService interface {
	Signup(ctx context.Context, req services.SignupRequest) (*services.AccountSummary, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, token string) (*services.AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetAccount(ctx context.Context, accountID string) (*services.AccountSummary, error)
	UpdateProfile(ctx context.Context, accountID string, upd services.ProfileUpdate) (*services.AccountSummary, error)
	ChangePassword(ctx context.Context, accountID, newPassword, confirm string) error
	Deactivate(ctx context.Context, accountID string) error
	Restore(ctx context.Context, accountID string) (*services.AccountSummary, error)
}

// TokenVerifier resolves an access token to its account id.
type TokenVerifier interface {
	AccountIDFromToken(token string) (string, error)
}

type GRPCServer struct {
	address  string
	accounts AccountService
	verifier TokenVerifier
	logger   logging.Logger
}

var _ AccountServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, accounts AccountService, verifier TokenVerifier) (*GRPCServer, error) {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		verifier: verifier,
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	// registers service
	RegisterAccountServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
