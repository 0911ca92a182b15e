package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const accountColumns = "id, account_code, email, password, created_at"

// UpsertAccount inserts a credential into the account pool or refreshes the
// stored email and password for an existing account code.
func (s *Store) UpsertAccount(ctx context.Context, accountCode, email, password string) (*Account, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO accounts (account_code, email, password, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(account_code) DO UPDATE SET email = excluded.email, password = excluded.password`,
		accountCode,
		email,
		password,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	return s.AccountByCode(ctx, accountCode)
}

// AccountByCode fetches an account by its code. Returns nil when absent.
func (s *Store) AccountByCode(ctx context.Context, accountCode string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_code = ?`, accountCode)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns every pooled account ordered by account code.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_code`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account from the pool by code.
func (s *Store) DeleteAccount(ctx context.Context, accountCode string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_code = ?`, accountCode)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	var (
		account    Account
		createdRaw string
	)
	if err := scanner.Scan(
		&account.ID,
		&account.AccountCode,
		&account.Email,
		&account.Password,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		account.CreatedAt = created
	}
	return &account, nil
}
