package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "community.account.AccountService"

// FullMethod returns the gRPC method path for a method of the account service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AccountServiceServer is the server API of the account service.
type AccountServiceServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	Signup(context.Context, *SignupRequest) (*AccountResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Refresh(context.Context, *RefreshRequest) (*AuthResponse, error)
	Logout(context.Context, *LogoutRequest) (*Empty, error)
	GetAccount(context.Context, *Empty) (*AccountResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*AccountResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	Deactivate(context.Context, *Empty) (*Empty, error)
	Restore(context.Context, *Empty) (*AccountResponse, error)
}

// unary builds a MethodDesc that decodes Req and dispatches through the
// server's interceptor chain.
func unary[Req any, Resp any](method string, call func(AccountServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AccountServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var accountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", AccountServiceServer.Ping),
		unary("Signup", AccountServiceServer.Signup),
		unary("Login", AccountServiceServer.Login),
		unary("Refresh", AccountServiceServer.Refresh),
		unary("Logout", AccountServiceServer.Logout),
		unary("GetAccount", AccountServiceServer.GetAccount),
		unary("UpdateProfile", AccountServiceServer.UpdateProfile),
		unary("ChangePassword", AccountServiceServer.ChangePassword),
		unary("Deactivate", AccountServiceServer.Deactivate),
		unary("Restore", AccountServiceServer.Restore),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "account_service",
}

// RegisterAccountServiceServer registers srv on s.
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&accountServiceDesc, srv)
}
