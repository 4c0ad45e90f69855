package ports

import "context"

// TransactionManager opens units of work.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is an atomic unit of work. Exactly one of Commit or Rollback
// takes effect; Rollback after Commit is a no-op so callers can defer it.
type Transaction interface {
	Users() UserCommandGateway
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
