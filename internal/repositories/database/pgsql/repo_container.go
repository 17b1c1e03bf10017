package pgsql

import (
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:    newPgxAccountRepository(dbPool),
		LedgerRepo:     newPgxLedgerRepository(dbPool),
		SettlementRepo: newPgxSettlementRepository(dbPool),
		OrderRepo:      newPgxOrderRepository(dbPool),
	}
}
