package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/99minutos/identity-access/internal/core/domain"
)

const userColumns = `id, username, role, is_active, password_hash, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// UserGateway implements ports.UserCommandGateway on top of a transaction.
type UserGateway struct {
	q querier
}

// ReadByUsername locks the row with FOR UPDATE when forUpdate is set; the lock
// is held until the owning transaction commits or rolls back.
func (g *UserGateway) ReadByUsername(ctx context.Context, username domain.Username, forUpdate bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	row := g.q.QueryRowContext(ctx, query, username.String())
	return scanOne(row, "ReadByUsername")
}

func (g *UserGateway) Update(ctx context.Context, user *domain.User) error {
	res, err := g.q.ExecContext(ctx,
		`UPDATE users SET role = $1, is_active = $2, password_hash = $3, updated_at = $4 WHERE id = $5`,
		user.Role.String(), user.IsActive, []byte(user.PasswordHash), user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: %w: %s", domain.ErrUserNotFoundByUsername, user.Username)
	}
	return nil
}

func scanOne(row scanner, op string) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u        domain.User
		id       uuid.UUID
		username string
		role     string
		hash     []byte
	)
	if err := s.Scan(&id, &username, &role, &u.IsActive, &hash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	name, err := domain.NewUsername(username)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", id, err)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", id, err)
	}

	u.ID = id.String()
	u.Username = name
	u.Role = r
	u.PasswordHash = domain.PasswordHash(hash)
	return &u, nil
}

// UserReader implements ports.UserReader on the pool, without locks.
type UserReader struct {
	db *sql.DB
}

func NewUserReader(db *sql.DB) *UserReader {
	return &UserReader{db: db}
}

func (r *UserReader) ReadByID(ctx context.Context, id string) (*domain.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
	return scanOne(row, "ReadByID")
}

func (r *UserReader) ReadByUsername(ctx context.Context, username domain.Username) (*domain.User, error) {
	return (&UserGateway{q: r.db}).ReadByUsername(ctx, username, false)
}
