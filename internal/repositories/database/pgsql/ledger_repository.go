package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	"github.com/feastly/ledger_backend/internal/middleware"
	"github.com/feastly/ledger_backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerRepository implements the append-only ledger store using pgx
type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new ledger repository
func newPgxLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository{Pool: pool}}
}

const postingColumns = `posting_id, batch_id, posting_type, account_id, amount, order_ref, description, created_at`

func scanPosting(row pgx.Row) (domain.Posting, error) {
	var p domain.Posting
	err := row.Scan(&p.PostingID, &p.BatchID, &p.PostingType, &p.AccountID, &p.Amount, &p.OrderRef, &p.Description, &p.CreatedAt)
	return p, err
}

// insertBatchTx writes one batch row and its postings inside tx. Shared with
// the settlement repository, which commits the payout batch in its own
// transaction. Returns the unique-violation error unwrapped so the caller can
// detect an idempotency key replay.
func insertBatchTx(ctx context.Context, tx pgx.Tx, batch domain.PostingBatch, postings []domain.Posting) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_batches (batch_id, idempotency_key, order_ref, event_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		batch.BatchID, batch.IdempotencyKey, batch.OrderRef, batch.EventType, batch.CreatedAt)
	if err != nil {
		return err
	}

	pgBatch := &pgx.Batch{}
	insertPosting := `
		INSERT INTO postings (` + postingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range postings {
		pgBatch.Queue(insertPosting,
			p.PostingID, p.BatchID, p.PostingType, p.AccountID, p.Amount, p.OrderRef, p.Description, p.CreatedAt)
	}

	results := tx.SendBatch(ctx, pgBatch)
	defer results.Close()
	for range postings {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// AppendBatch commits a batch and its postings atomically. A second call with
// the same idempotency key hits the unique index on ledger_batches and is
// answered with the previously committed result instead of an error.
func (r *PgxLedgerRepository) AppendBatch(ctx context.Context, batch domain.PostingBatch, postings []domain.Posting) (*domain.BatchResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx) //nolint:errcheck

	if err := insertBatchTx(ctx, tx, batch, postings); err != nil {
		if isUniqueViolation(err, "ledger_batches_idempotency_key_key") {
			_ = tx.Rollback(ctx)
			logger.Info("idempotency key already committed, replaying prior batch", "idempotencyKey", batch.IdempotencyKey)
			prior, findErr := r.FindBatchByIdempotencyKey(ctx, batch.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("failed to load prior batch for key %s: %w", batch.IdempotencyKey, findErr)
			}
			prior.AlreadyCommitted = true
			return prior, nil
		}
		return nil, wrapDBError(err, "failed to append batch")
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &domain.BatchResult{Batch: batch, Postings: postings}, nil
}

// FindBatchByIdempotencyKey returns a previously committed batch and its postings.
func (r *PgxLedgerRepository) FindBatchByIdempotencyKey(ctx context.Context, key string) (*domain.BatchResult, error) {
	var batch domain.PostingBatch
	err := r.Pool.QueryRow(ctx, `
		SELECT batch_id, idempotency_key, order_ref, event_type, created_at
		FROM ledger_batches WHERE idempotency_key = $1`, key).
		Scan(&batch.BatchID, &batch.IdempotencyKey, &batch.OrderRef, &batch.EventType, &batch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapDBError(err, "failed to find batch by idempotency key")
	}

	postings, err := r.queryPostings(ctx, `
		SELECT `+postingColumns+` FROM postings
		WHERE batch_id = $1 ORDER BY created_at, posting_id`, batch.BatchID)
	if err != nil {
		return nil, err
	}
	return &domain.BatchResult{Batch: batch, Postings: postings}, nil
}

// FindPostingsByOrderRef returns every posting referencing an order, in creation order.
func (r *PgxLedgerRepository) FindPostingsByOrderRef(ctx context.Context, orderRef string) ([]domain.Posting, error) {
	return r.queryPostings(ctx, `
		SELECT `+postingColumns+` FROM postings
		WHERE order_ref = $1 ORDER BY created_at, posting_id`, orderRef)
}

func (r *PgxLedgerRepository) queryPostings(ctx context.Context, query string, args ...any) ([]domain.Posting, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "failed to query postings")
	}
	defer rows.Close()

	var postings []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, wrapDBError(err, "failed to scan posting row")
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating posting rows")
	}
	return postings, nil
}

// ListPostings returns a filtered page of postings joined with their account,
// newest first, plus the total row count for page math.
func (r *PgxLedgerRepository) ListPostings(ctx context.Context, filter domain.PostingFilter, limit, offset int) ([]domain.TransactionRow, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.PostingType != nil {
		args = append(args, *filter.PostingType)
		where += fmt.Sprintf(" AND p.posting_type = $%d", len(args))
	}
	if filter.AccountType != nil {
		args = append(args, *filter.AccountType)
		where += fmt.Sprintf(" AND a.account_type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND p.created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND p.created_at < $%d", len(args))
	}

	from := ` FROM postings p JOIN accounts a ON a.account_id = p.account_id` + where

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, wrapDBError(err, "failed to count postings")
	}

	args = append(args, limit, offset)
	query := `
		SELECT p.created_at, p.posting_type, p.account_id, a.account_type, a.owner_ref, p.amount, p.order_ref, p.description` +
		from + fmt.Sprintf(`
		ORDER BY p.created_at DESC, p.posting_id DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapDBError(err, "failed to query transaction rows")
	}
	defer rows.Close()

	var result []domain.TransactionRow
	for rows.Next() {
		var t domain.TransactionRow
		if err := rows.Scan(&t.Date, &t.PostingType, &t.AccountID, &t.AccountType, &t.OwnerRef, &t.Amount, &t.OrderRef, &t.Description); err != nil {
			return nil, 0, wrapDBError(err, "failed to scan transaction row")
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError(err, "failed iterating transaction rows")
	}
	return result, total, nil
}

// ListPostingsByAccount retrieves postings for one account using token-based
// pagination. It fetches limit+1 rows to decide whether a next page exists.
func (r *PgxLedgerRepository) ListPostingsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Posting, *string, error) {
	args := []any{accountID}
	query := `SELECT ` + postingColumns + ` FROM postings WHERE account_id = $1`

	if nextToken != nil && *nextToken != "" {
		createdAt, postingID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		args = append(args, createdAt, postingID)
		query += ` AND (created_at, posting_id) > ($2, $3)`
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at, posting_id LIMIT $%d`, len(args))

	postings, err := r.queryPostings(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var token *string
	if len(postings) > limit {
		postings = postings[:limit]
		last := postings[limit-1]
		t := pagination.EncodeToken(last.CreatedAt, last.PostingID)
		token = &t
	}
	return postings, token, nil
}

// SumPostings returns the replay sum of every posting for the account with
// created_at <= asOf.
func (r *PgxLedgerRepository) SumPostings(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM postings
		WHERE account_id = $1 AND created_at <= $2`, accountID, asOf)
}

// SumUnsettledPayables sums payable-type postings for the account not yet
// referenced by a paid settlement, up to asOf. Postings attached to an OPEN
// settlement still count as pending; only a confirmed payout clears them.
func (r *PgxLedgerRepository) SumUnsettledPayables(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM postings p
		LEFT JOIN settlement_postings sp ON sp.posting_id = p.posting_id
		LEFT JOIN settlements s ON s.settlement_id = sp.settlement_id AND s.status = 'PAID'
		WHERE p.account_id = $1 AND p.created_at <= $2
		  AND p.posting_type = ANY($3)
		  AND s.settlement_id IS NULL`,
		accountID, asOf, postingTypeStrings(domain.PayableTypes))
}

// SumOutstandingDebt sums CLIENT_DEBT postings for the account up to asOf.
func (r *PgxLedgerRepository) SumOutstandingDebt(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM postings
		WHERE account_id = $1 AND created_at <= $2 AND posting_type = $3`,
		accountID, asOf, domain.ClientDebt)
}

func (r *PgxLedgerRepository) sum(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, wrapDBError(err, "failed to sum postings")
	}
	return total, nil
}

func postingTypeStrings(types []domain.PostingType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)
