package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	recordsrepo "github.com/dmitrijs2005/finkeeper/internal/server/repositories/records"
	refreshtokensrepo "github.com/dmitrijs2005/finkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/finkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	version    int64
	versionErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) IncrementCurrentVersion(context.Context, string) (int64, error) {
	if f.versionErr != nil {
		return 0, f.versionErr
	}
	f.version++
	return f.version, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr  error
	deleted []string

	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.delErr
}

// fakeRecordsRepo keeps records in memory keyed by id.
type fakeRecordsRepo struct {
	items map[string]*models.Record
	err   error
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{items: map[string]*models.Record{}}
}

func (f *fakeRecordsRepo) List(ctx context.Context, userID string, c models.Collection) ([]*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Record
	for _, r := range f.items {
		if r.UserID == userID && r.Collection == c {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordsRepo) Get(ctx context.Context, userID string, c models.Collection, id string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.items[id]
	if !ok || r.UserID != userID || r.Collection != c {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeRecordsRepo) Create(ctx context.Context, r *models.Record) error {
	if f.err != nil {
		return f.err
	}
	f.items[r.ID] = r
	return nil
}

func (f *fakeRecordsRepo) Update(ctx context.Context, r *models.Record) error {
	if f.err != nil {
		return f.err
	}
	old, ok := f.items[r.ID]
	if !ok || old.UserID != r.UserID || old.Collection != r.Collection {
		return common.ErrorNotFound
	}
	f.items[r.ID] = r
	return nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, userID string, c models.Collection, id string) error {
	if f.err != nil {
		return f.err
	}
	r, ok := f.items[id]
	if !ok || r.UserID != userID || r.Collection != c {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeRepoManager struct {
	u   *fakeUsersRepo
	r   *fakeRefreshRepo
	rec *fakeRecordsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Records(db dbx.DBTX) recordsrepo.Repository             { return m.rec }
