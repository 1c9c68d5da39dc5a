package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		r    models.Record
		data []byte
	)
	if err := s.Scan(&r.ID, &r.UserID, &r.Collection, &data, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &r.Data); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return &r, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, c models.Collection) ([]*models.Record, error) {
	query := `
		SELECT id, user_id, collection, data, version, created_at, updated_at
		FROM records
		WHERE user_id = $1 AND collection = $2
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, string(c))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, c models.Collection, id string) (*models.Record, error) {
	query := `
		SELECT id, user_id, collection, data, version, created_at, updated_at
		FROM records
		WHERE user_id = $1 AND collection = $2 AND id = $3
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, string(c), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO records (id, user_id, collection, data, version)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query, rec.ID, rec.UserID, string(rec.Collection), string(data), rec.Version).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	query := `
		UPDATE records
		SET data = $4::jsonb, version = $5, updated_at = now()
		WHERE user_id = $1 AND collection = $2 AND id = $3
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query, rec.UserID, string(rec.Collection), rec.ID, string(data), rec.Version).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, c models.Collection, id string) error {
	query := `
		DELETE FROM records
		WHERE user_id = $1 AND collection = $2 AND id = $3
	`
	res, err := r.db.ExecContext(ctx, query, userID, string(c), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if dbx.RowsAffected(res) == 0 {
		return common.ErrorNotFound
	}
	return nil
}
