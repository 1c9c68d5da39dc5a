package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/dbx"
)

// ops implements Ops over a database handle or a transaction.
type ops struct {
	db dbx.DBTX
}

func table(c Collection) (string, error) {
	t, ok := tables[c]
	if !ok {
		return "", fmt.Errorf("%w: unknown collection %q", ErrStorageOperationFailed, c)
	}
	return t, nil
}

func (o ops) Put(ctx context.Context, c Collection, key string, value []byte) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	q := `INSERT INTO ` + t + `(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := o.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("%w: put %s/%s: %w", ErrStorageOperationFailed, c, key, err)
	}
	return nil
}

func (o ops) Get(ctx context.Context, c Collection, key string) ([]byte, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = o.db.QueryRowContext(ctx, `SELECT value FROM `+t+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %w", ErrStorageOperationFailed, c, key, err)
	}
	return value, nil
}

func (o ops) Delete(ctx context.Context, c Collection, key string) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	if _, err := o.db.ExecContext(ctx, `DELETE FROM `+t+` WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %w", ErrStorageOperationFailed, c, key, err)
	}
	return nil
}

// GetAll returns the records in insertion order.
func (o ops) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	rows, err := o.db.QueryContext(ctx, `SELECT key, value FROM `+t+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStorageOperationFailed, c, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrStorageOperationFailed, c, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStorageOperationFailed, c, err)
	}
	return out, nil
}

func (o ops) Clear(ctx context.Context, c Collection) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	if _, err := o.db.ExecContext(ctx, `DELETE FROM `+t); err != nil {
		return fmt.Errorf("%w: clear %s: %w", ErrStorageOperationFailed, c, err)
	}
	return nil
}
