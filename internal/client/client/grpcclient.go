package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const DefaultCallTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	dialOpts    []grpc.DialOption
	callTimeout time.Duration
	conn        *grpc.ClientConn
	client      pb.FinanceClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onTokens     func(access, refresh string)
}

type Option func(*GRPCClient)

// WithDialOptions appends dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *GRPCClient) { c.callTimeout = d }
}

// WithTokenListener registers fn to be called whenever the session tokens
// change, including refreshes done by the interceptor.
func WithTokenListener(fn func(access, refresh string)) Option {
	return func(c *GRPCClient) { c.onTokens = fn }
}

func NewFinanceClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, callTimeout: DefaultCallTimeout}
	for _, o := range opts {
		o(c)
	}
	if err := c.initGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewFinanceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	fn := s.onTokens
	s.mu.Unlock()
	if fn != nil {
		fn(access, refresh)
	}
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == pb.Finance_RefreshToken_FullMethodName {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	if rerr := s.refresh(ctx, refresh); rerr != nil {
		return rerr
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (s *GRPCClient) refresh(ctx context.Context, refreshToken string) error {
	req, err := pb.NewMessage(map[string]any{"refresh_token": refreshToken})
	if err != nil {
		return err
	}
	resp, err := s.client.RefreshToken(ctx, req)
	if err != nil {
		return err
	}
	s.setTokens(pb.String(resp, "access_token"), pb.String(resp, "refresh_token"))
	return nil
}

// call builds the request message, applies the per-call timeout and maps
// transport errors.
func (s *GRPCClient) call(
	ctx context.Context,
	rpc func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error),
	fields map[string]any,
) (*structpb.Struct, error) {
	req, err := pb.NewMessage(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	resp, err := rpc(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	_, err := s.call(ctx, s.client.Register, map[string]any{
		"username": userName,
		"salt":     salt,
		"verifier": verifier,
	})
	return err
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	resp, err := s.call(ctx, s.client.GetSalt, map[string]any{"username": userName})
	if err != nil {
		return nil, err
	}
	return pb.Bytes(resp, "salt")
}

func (s *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) error {
	resp, err := s.call(ctx, s.client.Login, map[string]any{
		"username": userName,
		"verifier": verifier,
	})
	if err != nil {
		return err
	}
	s.setTokens(pb.String(resp, "access_token"), pb.String(resp, "refresh_token"))
	return nil
}

// Resume restores a session from a stored refresh token.
func (s *GRPCClient) Resume(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrUnauthorized
	}
	resp, err := s.call(ctx, s.client.RefreshToken, map[string]any{"refresh_token": refreshToken})
	if err != nil {
		return err
	}
	s.setTokens(pb.String(resp, "access_token"), pb.String(resp, "refresh_token"))
	return nil
}

func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

func (s *GRPCClient) RefreshToken() string {
	_, refresh := s.tokens()
	return refresh
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.call(ctx, s.client.Ping, map[string]any{})
	if err != nil {
		return err
	}
	if pb.String(resp, "status") != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) List(ctx context.Context, c models.Collection) ([]map[string]any, error) {
	resp, err := s.call(ctx, s.client.List, map[string]any{"collection": string(c)})
	if err != nil {
		return nil, err
	}
	return pb.Objects(resp, "items"), nil
}

func (s *GRPCClient) Create(ctx context.Context, c models.Collection, data map[string]any) (map[string]any, error) {
	resp, err := s.call(ctx, s.client.Create, map[string]any{
		"collection": string(c),
		"record":     data,
	})
	if err != nil {
		return nil, err
	}
	return pb.Object(resp, "record"), nil
}

func (s *GRPCClient) Update(ctx context.Context, c models.Collection, id string, data map[string]any) (map[string]any, error) {
	resp, err := s.call(ctx, s.client.Update, map[string]any{
		"collection": string(c),
		"id":         id,
		"record":     data,
	})
	if err != nil {
		return nil, err
	}
	return pb.Object(resp, "record"), nil
}

func (s *GRPCClient) Delete(ctx context.Context, c models.Collection, id string) error {
	_, err := s.call(ctx, s.client.Delete, map[string]any{
		"collection": string(c),
		"id":         id,
	})
	return err
}

func (s *GRPCClient) ReceiptUploadURL(ctx context.Context, expenseID, contentType string) (string, string, error) {
	resp, err := s.call(ctx, s.client.ReceiptUploadURL, map[string]any{
		"expense_id":   expenseID,
		"content_type": contentType,
	})
	if err != nil {
		return "", "", err
	}
	return pb.String(resp, "key"), pb.String(resp, "url"), nil
}

func (s *GRPCClient) ReceiptDownloadURL(ctx context.Context, key string) (string, error) {
	resp, err := s.call(ctx, s.client.ReceiptDownloadURL, map[string]any{"key": key})
	if err != nil {
		return "", err
	}
	return pb.String(resp, "url"), nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
