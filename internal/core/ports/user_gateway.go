package ports

import (
	"context"

	"github.com/99minutos/identity-access/internal/core/domain"
)

// UserCommandGateway reads and writes user records inside a transaction.
// Writes become visible to others only after the owning Transaction commits.
type UserCommandGateway interface {
	// ReadByUsername returns (nil, nil) when no user matches. With forUpdate
	// the row stays exclusively locked until the transaction ends.
	ReadByUsername(ctx context.Context, username domain.Username, forUpdate bool) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// UserReader performs non-locking reads outside any transaction. Both
// methods return (nil, nil) when no user matches.
type UserReader interface {
	ReadByID(ctx context.Context, id string) (*domain.User, error)
	ReadByUsername(ctx context.Context, username domain.Username) (*domain.User, error)
}
