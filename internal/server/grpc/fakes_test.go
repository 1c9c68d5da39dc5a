package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/server/auth"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"
)

const testSecret = "secret"

type fakeUsers struct {
	registerErr error
	loginErr    error
	refreshErr  error
	salt        []byte
}

func (f *fakeUsers) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.salt = salt
	return &models.User{ID: "u1", UserName: username, Salt: salt, Verifier: verifier}, nil
}

func (f *fakeUsers) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.salt, nil
}

func (f *fakeUsers) Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.pair(time.Hour)
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.pair(time.Hour)
}

func (f *fakeUsers) pair(validity time.Duration) (*services.TokenPair, error) {
	access, err := auth.GenerateToken("u1", []byte(testSecret), validity)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{AccessToken: access, RefreshToken: "refresh-1"}, nil
}

type fakeRecords struct {
	mu    sync.Mutex
	items map[string]map[string]any
	owner map[string]string
	seq   int
	err   error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{items: map[string]map[string]any{}, owner: map[string]string{}}
}

func (f *fakeRecords) List(ctx context.Context, userID string, c models.Collection) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []map[string]any{}
	for id, rec := range f.items {
		if f.owner[id] == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) Create(ctx context.Context, userID string, c models.Collection, data map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	id := "rec-" + string(rune('0'+f.seq))
	rec := map[string]any{"id": id}
	for k, v := range data {
		if k != "id" {
			rec[k] = v
		}
	}
	f.items[id] = rec
	f.owner[id] = userID
	return rec, nil
}

func (f *fakeRecords) Update(ctx context.Context, userID string, c models.Collection, id string, data map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.owner[id] != userID {
		return nil, common.ErrorNotFound
	}
	rec := map[string]any{"id": id}
	for k, v := range data {
		rec[k] = v
	}
	f.items[id] = rec
	return rec, nil
}

func (f *fakeRecords) Delete(ctx context.Context, userID string, c models.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.owner[id] != userID {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	delete(f.owner, id)
	return nil
}

type fakeReceipts struct {
	err error
}

func (f fakeReceipts) UploadURL(ctx context.Context, userID, expenseID, contentType string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	key := "receipts/" + userID + "/" + expenseID
	return key, "https://s3.local/" + key + "?ct=" + contentType, nil
}

func (f fakeReceipts) DownloadURL(ctx context.Context, userID, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.local/" + key, nil
}

func newTestServer(opts ...Option) (*GRPCServer, *fakeUsers, *fakeRecords) {
	us := &fakeUsers{}
	rs := newFakeRecords()
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), testSecret, us, rs, opts...), us, rs
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
