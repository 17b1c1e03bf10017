package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxAccountRepository implements account persistence using pgx
type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new account repository
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository{Pool: pool}}
}

const accountColumns = `account_id, account_type, owner_ref, created_at`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.AccountID, &a.AccountType, &a.OwnerRef, &a.CreatedAt)
	return a, err
}

// EnsureAccount returns the row for (accountType, ownerRef), inserting it on
// first use. The ON CONFLICT DO UPDATE form makes the insert return the
// existing row instead of nothing, so concurrent callers all get the same
// account without a retry loop.
func (r *PgxAccountRepository) EnsureAccount(ctx context.Context, accountType domain.AccountType, ownerRef string) (*domain.Account, error) {
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", apperrors.ErrValidation, accountType)
	}
	if ownerRef == "" {
		return nil, fmt.Errorf("%w: owner ref is required", apperrors.ErrValidation)
	}

	query := `
		INSERT INTO accounts (account_id, account_type, owner_ref, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_type, owner_ref) DO UPDATE SET owner_ref = EXCLUDED.owner_ref
		RETURNING ` + accountColumns

	account, err := scanAccount(r.Pool.QueryRow(ctx, query, uuid.NewString(), accountType, ownerRef, time.Now().UTC()))
	if err != nil {
		return nil, wrapDBError(err, "failed to ensure account")
	}
	return &account, nil
}

// FindAccountByID retrieves an account by its unique identifier.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`

	account, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapDBError(err, "failed to find account")
	}
	return &account, nil
}

// ListAccountsByType retrieves every account of the given type, oldest first.
func (r *PgxAccountRepository) ListAccountsByType(ctx context.Context, accountType domain.AccountType) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_type = $1 ORDER BY created_at, account_id`

	rows, err := r.Pool.Query(ctx, query, accountType)
	if err != nil {
		return nil, wrapDBError(err, "failed to query accounts by type")
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, wrapDBError(err, "failed to scan account row")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating account rows")
	}
	return accounts, nil
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)
