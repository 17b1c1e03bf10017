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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxSettlementRepository implements settlement persistence using pgx
type PgxSettlementRepository struct {
	BaseRepository
}

// newPgxSettlementRepository creates a new settlement repository
func newPgxSettlementRepository(pool *pgxpool.Pool) *PgxSettlementRepository {
	return &PgxSettlementRepository{BaseRepository{Pool: pool}}
}

const settlementColumns = `settlement_id, account_id, period_start, period_end, status, total_amount, created_at, paid_at`

func scanSettlement(row pgx.Row) (domain.Settlement, error) {
	var s domain.Settlement
	err := row.Scan(&s.SettlementID, &s.AccountID, &s.Period.Start, &s.Period.End, &s.Status, &s.TotalAmount, &s.CreatedAt, &s.PaidAt)
	return s, err
}

// CreateSettlementForPeriod runs the whole settlement write in one
// transaction. An advisory lock on (account, period) serializes concurrent
// runs; the loser of the race sees the winner's settlement row and returns
// it unchanged. Payables are selected FOR UPDATE and excluded once attached
// to any settlement, so each payable is paid out at most once.
func (r *PgxSettlementRepository) CreateSettlementForPeriod(ctx context.Context, accountID string, period domain.SettlementPeriod, build portsrepo.SettlementBuilder) (*domain.Settlement, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer r.Rollback(ctx, tx) //nolint:errcheck

	lockKey := fmt.Sprintf("%s:%s", accountID, period.Key())
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return nil, false, wrapDBError(err, "failed to take settlement advisory lock")
	}

	existing, err := findSettlementForPeriodTx(ctx, tx, accountID, period)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		logger.Info("settlement already exists for period, returning existing",
			"settlementID", existing.SettlementID, "accountID", accountID, "period", period.Key())
		if err := r.Commit(ctx, tx); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	payables, err := lockUnattachedPayablesTx(ctx, tx, accountID, period)
	if err != nil {
		return nil, false, err
	}
	if len(payables) == 0 {
		return nil, false, nil
	}

	settlement, payoutBatch, payoutPostings, err := build(payables)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settlements (settlement_id, account_id, period_start, period_end, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		settlement.SettlementID, settlement.AccountID, settlement.Period.Start, settlement.Period.End,
		settlement.Status, settlement.TotalAmount, settlement.CreatedAt)
	if err != nil {
		return nil, false, wrapDBError(err, "failed to insert settlement")
	}

	attach := &pgx.Batch{}
	for _, postingID := range settlement.PostingIDs {
		attach.Queue(`INSERT INTO settlement_postings (posting_id, settlement_id) VALUES ($1, $2)`,
			postingID, settlement.SettlementID)
	}
	results := tx.SendBatch(ctx, attach)
	for range settlement.PostingIDs {
		if _, err := results.Exec(); err != nil {
			results.Close() //nolint:errcheck
			return nil, false, wrapDBError(err, "failed to attach payable to settlement")
		}
	}
	if err := results.Close(); err != nil {
		return nil, false, wrapDBError(err, "failed to attach payables to settlement")
	}

	if err := insertBatchTx(ctx, tx, payoutBatch, payoutPostings); err != nil {
		return nil, false, wrapDBError(err, "failed to append payout batch")
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, false, err
	}
	return &settlement, true, nil
}

// lockUnattachedPayablesTx selects and row-locks the period's payable
// postings that no settlement references yet, in deterministic order.
func lockUnattachedPayablesTx(ctx context.Context, tx pgx.Tx, accountID string, period domain.SettlementPeriod) ([]domain.Posting, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.posting_id, p.batch_id, p.posting_type, p.account_id, p.amount, p.order_ref, p.description, p.created_at
		FROM postings p
		LEFT JOIN settlement_postings sp ON sp.posting_id = p.posting_id
		WHERE p.account_id = $1
		  AND p.created_at >= $2 AND p.created_at < $3
		  AND p.posting_type = ANY($4)
		  AND sp.posting_id IS NULL
		ORDER BY p.created_at, p.posting_id
		FOR UPDATE OF p`,
		accountID, period.Start, period.End, postingTypeStrings(domain.PayableTypes))
	if err != nil {
		return nil, wrapDBError(err, "failed to lock payable postings")
	}
	defer rows.Close()

	var payables []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, wrapDBError(err, "failed to scan payable posting")
		}
		payables = append(payables, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating payable postings")
	}
	return payables, nil
}

// MarkSettlementPaid transitions a settlement OPEN -> PAID exactly once. The
// status guard in the UPDATE makes concurrent confirmations race-safe.
func (r *PgxSettlementRepository) MarkSettlementPaid(ctx context.Context, settlementID string, paidAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE settlements SET status = $1, paid_at = $2
		WHERE settlement_id = $3 AND status = $4`,
		domain.SettlementPaid, paidAt, settlementID, domain.SettlementOpen)
	if err != nil {
		return wrapDBError(err, "failed to mark settlement paid")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// No row updated: either already paid or unknown id.
	var status domain.SettlementStatus
	err = r.Pool.QueryRow(ctx, `SELECT status FROM settlements WHERE settlement_id = $1`, settlementID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return wrapDBError(err, "failed to check settlement status")
	}
	return fmt.Errorf("%w: settlement %s is already %s", apperrors.ErrDuplicate, settlementID, status)
}

// FindSettlementByID retrieves a settlement with its attached posting IDs.
func (r *PgxSettlementRepository) FindSettlementByID(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	s, err := scanSettlement(r.Pool.QueryRow(ctx, `
		SELECT `+settlementColumns+` FROM settlements WHERE settlement_id = $1`, settlementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapDBError(err, "failed to find settlement")
	}
	if s.PostingIDs, err = r.postingIDsFor(ctx, s.SettlementID); err != nil {
		return nil, err
	}
	return &s, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func findSettlementForPeriod(ctx context.Context, q rowQuerier, accountID string, period domain.SettlementPeriod) (*domain.Settlement, error) {
	s, err := scanSettlement(q.QueryRow(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE account_id = $1 AND period_start = $2 AND period_end = $3`,
		accountID, period.Start, period.End))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapDBError(err, "failed to find settlement for period")
	}
	return &s, nil
}

func findSettlementForPeriodTx(ctx context.Context, tx pgx.Tx, accountID string, period domain.SettlementPeriod) (*domain.Settlement, error) {
	s, err := findSettlementForPeriod(ctx, tx, accountID, period)
	if err != nil {
		return nil, err
	}
	s.PostingIDs, err = postingIDsForTx(ctx, tx, s.SettlementID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PgxSettlementRepository) postingIDsFor(ctx context.Context, settlementID string) ([]string, error) {
	return queryPostingIDs(ctx, r.Pool, settlementID)
}

func postingIDsForTx(ctx context.Context, tx pgx.Tx, settlementID string) ([]string, error) {
	return queryPostingIDs(ctx, tx, settlementID)
}

func queryPostingIDs(ctx context.Context, q rowQuerier, settlementID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT posting_id FROM settlement_postings WHERE settlement_id = $1 ORDER BY posting_id`, settlementID)
	if err != nil {
		return nil, wrapDBError(err, "failed to query settlement postings")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError(err, "failed to scan settlement posting id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating settlement posting ids")
	}
	return ids, nil
}

// ListOpenSettlements returns settlements still awaiting payout-rail
// confirmation, oldest first.
func (r *PgxSettlementRepository) ListOpenSettlements(ctx context.Context, olderThan time.Duration) ([]domain.Settlement, error) {
	cutoff := time.Now().UTC()
	if olderThan > 0 {
		cutoff = cutoff.Add(-olderThan)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at, settlement_id`,
		domain.SettlementOpen, cutoff)
	if err != nil {
		return nil, wrapDBError(err, "failed to query open settlements")
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, wrapDBError(err, "failed to scan settlement row")
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating settlement rows")
	}

	for i := range settlements {
		if settlements[i].PostingIDs, err = r.postingIDsFor(ctx, settlements[i].SettlementID); err != nil {
			return nil, err
		}
	}
	return settlements, nil
}

var _ portsrepo.SettlementRepositoryFacade = (*PgxSettlementRepository)(nil)
