package client

import (
	"context"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
)

type Client interface {
	Close() error
	Register(ctx context.Context, username string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) error
	Resume(ctx context.Context, refreshToken string) error
	Logout()
	RefreshToken() string
	Ping(ctx context.Context) error
	List(ctx context.Context, c models.Collection) ([]map[string]any, error)
	Create(ctx context.Context, c models.Collection, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, c models.Collection, id string, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, c models.Collection, id string) error
	ReceiptUploadURL(ctx context.Context, expenseID, contentType string) (key string, url string, err error)
	ReceiptDownloadURL(ctx context.Context, key string) (string, error)
}
