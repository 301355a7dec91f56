package grpc

import (
	"context"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var kindCodes = map[common.Kind]codes.Code{
	common.KindBadRequest:   codes.InvalidArgument,
	common.KindConflict:     codes.AlreadyExists,
	common.KindNotFound:     codes.NotFound,
	common.KindUnauthorized: codes.Unauthenticated,
	common.KindInternal:     codes.Internal,
}

// toStatus maps a service error onto a gRPC status. Internal failures are
// logged here and reach the caller as a bare "internal error".
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	kind := common.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = codes.Internal
	}

	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	return status.Error(code, common.MessageOf(err))
}
