package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser  = "user-1"
	testID    = "0b4f8c2e-6a7d-4f0e-9a51-3c2d1e0f9b7a"
	otherUser = "user-2"
)

func newRecordServiceForTest(t *testing.T) (*RecordService, *fakeRepoManager, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := &fakeRepoManager{u: &fakeUsersRepo{}, rec: newFakeRecordsRepo()}
	s := NewRecordService(db, rm)
	s.newID = func() string { return testID }

	return s, rm, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("expenses")
	require.NoError(t, err)
	assert.Equal(t, models.Expenses, c)

	_, err = ParseCollection("invoices")
	assert.ErrorIs(t, err, common.ErrUnknownCollection)
}

func TestRecordService_CreateNormalizes(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: &fakeUsersRepo{version: 6}, rec: newFakeRecordsRepo()}
	s := NewRecordService(db, rm)
	s.newID = func() string { return testID }

	out, err := s.Create(context.Background(), testUser, models.Expenses, map[string]any{
		"id":          "temp_123",
		"description": "milk",
		"amount":      4.2,
		"bogus":       true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": testID, "description": "milk", "amount": 4.2}, out)

	stored := rm.rec.items[testID]
	require.NotNil(t, stored)
	assert.Equal(t, int64(7), stored.Version)
	assert.Equal(t, testUser, stored.UserID)
	assert.NotContains(t, stored.Data, "id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_CreateValidation(t *testing.T) {
	s, rm, done := newRecordServiceForTest(t)
	defer done()

	_, err := s.Create(context.Background(), testUser, models.Expenses, map[string]any{"amount": 0})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "description is required")
	assert.Contains(t, err.Error(), "amount must be greater than 0")

	_, err = s.Create(context.Background(), testUser, models.Accounts, map[string]any{"name": "x", "kind": "crypto"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "kind must be one of")

	_, err = s.Create(context.Background(), testUser, models.Expenses, map[string]any{"description": 5, "amount": 1})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Create(context.Background(), testUser, models.Collection("invoices"), map[string]any{})
	assert.ErrorIs(t, err, common.ErrUnknownCollection)

	assert.Empty(t, rm.rec.items)
}

func TestRecordService_CreateVersionError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{versionErr: errBoom{}}, rec: newFakeRecordsRepo()}
	s := NewRecordService(db, rm)

	_, err := s.Create(context.Background(), testUser, models.Categories, map[string]any{"name": "Food"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating record: boom")
	assert.Empty(t, rm.rec.items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_ListAndGet(t *testing.T) {
	s, rm, done := newRecordServiceForTest(t)
	defer done()

	rm.rec.items[testID] = &models.Record{
		ID: testID, UserID: testUser, Collection: models.Goals,
		Data: map[string]any{"name": "Car", "target_amount": 5000.0},
	}

	list, err := s.List(context.Background(), testUser, models.Goals)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, testID, list[0]["id"])
	assert.Equal(t, "Car", list[0]["name"])

	list, err = s.List(context.Background(), otherUser, models.Goals)
	require.NoError(t, err)
	assert.Empty(t, list)

	rec, err := s.Get(context.Background(), testUser, models.Goals, testID)
	require.NoError(t, err)
	assert.Equal(t, testID, rec.ID)

	_, err = s.Get(context.Background(), otherUser, models.Goals, testID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Get(context.Background(), testUser, models.Goals, "temp_1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRecordService_Update(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, rec: newFakeRecordsRepo()}
	rm.rec.items[testID] = &models.Record{
		ID: testID, UserID: testUser, Collection: models.Budgets,
		Data: map[string]any{"category_id": "c1", "limit": 100.0, "period": "monthly"},
	}
	s := NewRecordService(db, rm)

	out, err := s.Update(context.Background(), testUser, models.Budgets, testID,
		map[string]any{"category_id": "c1", "limit": 250, "period": "weekly"})
	require.NoError(t, err)
	assert.Equal(t, 250.0, out["limit"])
	assert.Equal(t, "weekly", out["period"])
	assert.Equal(t, int64(1), rm.rec.items[testID].Version)

	_, err = s.Update(context.Background(), otherUser, models.Budgets, testID,
		map[string]any{"category_id": "c1", "limit": 1, "period": "weekly"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Update(context.Background(), testUser, models.Budgets, "temp_9",
		map[string]any{"category_id": "c1", "limit": 1, "period": "weekly"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_Delete(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, rec: newFakeRecordsRepo()}
	rm.rec.items[testID] = &models.Record{ID: testID, UserID: testUser, Collection: models.Accounts}
	s := NewRecordService(db, rm)

	require.NoError(t, s.Delete(context.Background(), testUser, models.Accounts, testID))
	assert.Empty(t, rm.rec.items)

	err := s.Delete(context.Background(), testUser, models.Accounts, testID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
