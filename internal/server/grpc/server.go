// Package grpc exposes the finance service over gRPC: authentication,
// per-collection record CRUD and receipt URLs.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type RecordService interface {
	List(ctx context.Context, userID string, c models.Collection) ([]map[string]any, error)
	Create(ctx context.Context, userID string, c models.Collection, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, userID string, c models.Collection, id string, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, userID string, c models.Collection, id string) error
}

type ReceiptService interface {
	UploadURL(ctx context.Context, userID, expenseID, contentType string) (string, string, error)
	DownloadURL(ctx context.Context, userID, key string) (string, error)
}

type GRPCServer struct {
	pb.UnimplementedFinanceServer
	address   string
	users     UserService
	records   RecordService
	receipts  ReceiptService
	logger    logging.Logger
	metrics   *metrics.Collector
	jwtSecret []byte
}

type Option func(*GRPCServer)

func WithMetrics(m *metrics.Collector) Option {
	return func(s *GRPCServer) { s.metrics = m }
}

// WithReceipts enables the receipt URL methods. Without it they answer
// Unavailable.
func WithReceipts(r ReceiptService) Option {
	return func(s *GRPCServer) { s.receipts = r }
}

func NewGRPCServer(a string, l logging.Logger, secretKey string, us UserService, rs RecordService, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		records:   rs,
		jwtSecret: []byte(secretKey),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.accessTokenInterceptor))
	pb.RegisterFinanceServer(srv, s)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
