package grpc

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"github.com/dmitrijs2005/finkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// methods reachable without an access token
var publicMethods = map[string]bool{
	pb.Finance_Register_FullMethodName:     true,
	pb.Finance_GetSalt_FullMethodName:      true,
	pb.Finance_Login_FullMethodName:        true,
	pb.Finance_RefreshToken_FullMethodName: true,
	pb.Finance_Ping_FullMethodName:         true,
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// accessTokenInterceptor authenticates every non-public call. An expired
// token is reported with the exact message the client refreshes on.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

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

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = logging.ContextWith(ctx, "user_id", userID)
	return handler(ctx, req)
}

// observeInterceptor counts every call by method and status code, tags the
// context with the method for logging and logs failures.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	method := path.Base(info.FullMethod)
	ctx = logging.ContextWith(ctx, "method", method)

	resp, err := handler(ctx, req)

	code := status.Code(err)
	s.metrics.RPC(method, code.String())

	if err != nil {
		s.logger.Warn(ctx, "rpc failed", "code", code.String(), "duration", time.Since(start))
	} else {
		s.logger.Debug(ctx, "rpc", "duration", time.Since(start))
	}
	return resp, err
}
