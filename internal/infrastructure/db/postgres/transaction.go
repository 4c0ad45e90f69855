package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/99minutos/identity-access/internal/core/ports"
)

// TransactionManager implements ports.TransactionManager with database/sql.
type TransactionManager struct {
	db *sql.DB
}

func NewTransactionManager(db *sql.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// Begin starts a read-committed transaction bound to ctx. If ctx is cancelled
// before Commit, database/sql rolls the transaction back.
func (m *TransactionManager) Begin(ctx context.Context) (ports.Transaction, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	return &transaction{tx: tx, users: &UserGateway{q: tx}}, nil
}

type transaction struct {
	tx    *sql.Tx
	users *UserGateway
}

func (t *transaction) Users() ports.UserCommandGateway { return t.users }

func (t *transaction) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("Commit: %w", err)
	}
	return nil
}

// Rollback is a no-op once the transaction has already ended.
func (t *transaction) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("Rollback: %w", err)
	}
	return nil
}
