package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `INSERT INTO "user" (id, created_ts) VALUES (` + placeholders(2) + `)
		ON CONFLICT (id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return create, nil
}

func (d *DB) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	if find.ID == nil {
		return nil, fmt.Errorf("id is required")
	}

	query := `SELECT id, created_ts FROM "user" WHERE id = ` + placeholder(1)
	user := &store.User{}
	err := d.db.QueryRowContext(ctx, query, *find.ID).Scan(&user.ID, &user.CreatedTs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
