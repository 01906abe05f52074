// Package sqlite is a Store backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
)

//go:embed schema.sql
var schemaSQL string

const entityCounter = "entity"

// Store keeps node state in SQLite with WAL journaling.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) PutAccount(ctx context.Context, a storage.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, key) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, key = excluded.key
	`, a.ID.String(), int64(a.Balance), a.Key)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id model.EntityID) (storage.Account, error) {
	a := storage.Account{ID: id}
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance, key FROM accounts WHERE id = ?`, id.String()).Scan(&balance, &a.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Account{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Balance = model.Amount(balance)
	return a, nil
}

func (s *Store) GetFile(ctx context.Context, id model.EntityID) (storage.File, error) {
	f := storage.File{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT contents, memo, tx_id FROM files WHERE id = ?`, id.String()).
		Scan(&f.Contents, &f.Memo, &f.TransactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.File{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.File{}, fmt.Errorf("get file: %w", err)
	}
	if f.Contents == nil {
		f.Contents = []byte{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key FROM file_keys WHERE file_id = ? ORDER BY idx`, id.String())
	if err != nil {
		return storage.File{}, fmt.Errorf("get file keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k []byte
		if err := rows.Scan(&k); err != nil {
			return storage.File{}, fmt.Errorf("scan file key: %w", err)
		}
		f.Keys = append(f.Keys, k)
	}
	if err := rows.Err(); err != nil {
		return storage.File{}, fmt.Errorf("get file keys: %w", err)
	}
	return f, nil
}

func (s *Store) PutReceipt(ctx context.Context, txID string, r model.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put receipt: %w", err)
	}
	defer tx.Rollback()
	if err := writeReceipt(ctx, tx, txID, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetReceipt(ctx context.Context, txID string) (model.Receipt, error) {
	var (
		r        model.Receipt
		status   int64
		resource sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT status, reason, resource_id FROM receipts WHERE tx_id = ?`, txID).
		Scan(&status, &r.Reason, &resource)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Receipt{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	r.Status = model.ReceiptStatus(status)
	if resource.Valid {
		id, err := model.ParseEntityID(resource.String)
		if err != nil {
			return model.Receipt{}, fmt.Errorf("get receipt: %w", err)
		}
		r.ResourceID = &id
	}
	return r, nil
}

// nextEntity reserves an entity number inside tx. It commits or rolls back
// with the settlement that uses it.
func nextEntity(ctx context.Context, tx *sql.Tx, floor uint64) (uint64, error) {
	var next int64
	err := tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, entityCounter).Scan(&next)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("next entity: %w", err)
	}
	n := uint64(next)
	if n < floor {
		n = floor
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, entityCounter, int64(n+1))
	if err != nil {
		return 0, fmt.Errorf("next entity: %w", err)
	}
	return n, nil
}

func (s *Store) Settle(ctx context.Context, st storage.Settlement) (model.Receipt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("settle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = balance - ? WHERE id = ?`, int64(st.Fee), st.Payer.String())
	if err != nil {
		return model.Receipt{}, fmt.Errorf("settle: charge fee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Receipt{}, storage.ErrNotFound
	}

	r := st.Receipt
	if f := st.File; f != nil {
		num, err := nextEntity(ctx, tx, st.EntityFloor)
		if err != nil {
			return model.Receipt{}, err
		}
		id := f.ID
		id.Num = num
		contents := f.Contents
		if contents == nil {
			contents = []byte{}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO files (id, contents, memo, tx_id) VALUES (?, ?, ?, ?)`,
			id.String(), contents, f.Memo, f.TransactionID); err != nil {
			return model.Receipt{}, fmt.Errorf("settle: insert file: %w", err)
		}
		for i, k := range f.Keys {
			if _, err := tx.ExecContext(ctx, `INSERT INTO file_keys (file_id, idx, key) VALUES (?, ?, ?)`,
				id.String(), i, k); err != nil {
				return model.Receipt{}, fmt.Errorf("settle: insert file key: %w", err)
			}
		}
		if r.Status == model.ReceiptSuccess {
			r.ResourceID = &id
		}
	}

	if err := writeReceipt(ctx, tx, st.TransactionID, r); err != nil {
		return model.Receipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Receipt{}, fmt.Errorf("settle: %w", err)
	}
	return r, nil
}

func writeReceipt(ctx context.Context, tx *sql.Tx, txID string, r model.Receipt) error {
	var status int64
	err := tx.QueryRowContext(ctx, `SELECT status FROM receipts WHERE tx_id = ?`, txID).Scan(&status)
	switch {
	case err == nil:
		if model.ReceiptStatus(status) != model.ReceiptPending {
			return storage.ErrExists
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write receipt: %w", err)
	}

	var resource sql.NullString
	if r.ResourceID != nil {
		resource = sql.NullString{String: r.ResourceID.String(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (tx_id, status, reason, resource_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(tx_id) DO UPDATE SET status = excluded.status, reason = excluded.reason, resource_id = excluded.resource_id
	`, txID, int64(r.Status), r.Reason, resource)
	if err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}
