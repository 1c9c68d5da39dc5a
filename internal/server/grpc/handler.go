package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC codes. Unexpected errors are
// logged and hidden behind a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrUnknownCollection):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	msg, err := pb.NewMessage(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return msg, nil
}

func invalidArgument(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	id, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) scope(ctx context.Context, req *structpb.Struct) (string, models.Collection, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return "", "", err
	}
	c, err := services.ParseCollection(pb.String(req, "collection"))
	if err != nil {
		return "", "", invalidArgument(err)
	}
	return userID, c, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username := pb.String(req, "username")
	salt, err := pb.Bytes(req, "salt")
	if err != nil {
		return nil, invalidArgument(err)
	}
	verifier, err := pb.Bytes(req, "verifier")
	if err != nil {
		return nil, invalidArgument(err)
	}

	user, err := s.users.Register(ctx, username, salt, verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", username)
	return reply(map[string]any{"id": user.ID})
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	salt, err := s.users.GetSalt(ctx, pb.String(req, "username"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"salt": salt})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	verifier, err := pb.Bytes(req, "verifier")
	if err != nil {
		return nil, invalidArgument(err)
	}

	tokens, err := s.users.Login(ctx, pb.String(req, "username"), verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken})
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tokens, err := s.users.RefreshToken(ctx, pb.String(req, "refresh_token"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken})
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]any{"status": "OK"})
}

func (s *GRPCServer) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, c, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.records.List(ctx, userID, c)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"items": items})
}

func (s *GRPCServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, c, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Create(ctx, userID, c, pb.Object(req, "record"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"record": rec})
}

func (s *GRPCServer) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, c, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Update(ctx, userID, c, pb.String(req, "id"), pb.Object(req, "record"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"record": rec})
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, c, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.records.Delete(ctx, userID, c, pb.String(req, "id")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(nil)
}

func (s *GRPCServer) ReceiptUploadURL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if s.receipts == nil {
		return nil, status.Error(codes.Unavailable, "receipt storage is not configured")
	}
	key, url, err := s.receipts.UploadURL(ctx, userID, pb.String(req, "expense_id"), pb.String(req, "content_type"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"key": key, "url": url})
}

func (s *GRPCServer) ReceiptDownloadURL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if s.receipts == nil {
		return nil, status.Error(codes.Unavailable, "receipt storage is not configured")
	}
	url, err := s.receipts.DownloadURL(ctx, userID, pb.String(req, "key"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return reply(map[string]any{"url": url})
}
