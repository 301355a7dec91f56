package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const AccountIDKey ctxKey = "accountID"

// protectedMethods need a valid access token.
var protectedMethods = map[string]bool{
	FullMethod("GetAccount"):     true,
	FullMethod("UpdateProfile"):  true,
	FullMethod("ChangePassword"): true,
	FullMethod("Deactivate"):     true,
	FullMethod("Restore"):        true,
}

// AccountIDFromContext returns the account id stored by the interceptor.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protectedMethods[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		accountID, err := s.verifier.AccountIDFromToken(accessToken)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return nil, status.Error(codes.Unauthenticated, "token expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, AccountIDKey, accountID)

	}

	return handler(ctx, req)
}
