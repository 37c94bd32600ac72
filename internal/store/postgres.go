package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pandapunten/apiserver/types"
)

// PostgresCollection keeps the collection in the users table. Save still
// replaces the whole collection, but inside one transaction.
type PostgresCollection struct {
	db *sql.DB
}

func NewPostgresCollection(db *sql.DB) *PostgresCollection {
	return &PostgresCollection{db: db}
}

func (c *PostgresCollection) Load(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT name, token, last_reset
		FROM users
		ORDER BY position`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.Name, &user.Token, &user.LastReset); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (c *PostgresCollection) Save(ctx context.Context, users []types.User) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	const insert = `
		INSERT INTO users (position, name, token, last_reset)
		VALUES ($1, $2, $3, $4)`
	for i, user := range users {
		if _, err = tx.ExecContext(ctx, insert, i, user.Name, user.Token, user.LastReset); err != nil {
			return fmt.Errorf("insert user %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
