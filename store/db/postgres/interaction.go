package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) CreateInteraction(ctx context.Context, create *store.Interaction) (*store.Interaction, error) {
	stmt := `INSERT INTO interaction (id, user_id, type, payload, context, session_id, created_ts)
		VALUES (` + placeholders(7) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.UserID,
		create.Type,
		create.Payload,
		create.Context,
		create.SessionID,
		create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create interaction: %w", err)
	}
	return create, nil
}

func (d *DB) ListInteractions(ctx context.Context, find *store.FindInteraction) ([]*store.Interaction, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, "user_id = "+placeholder(len(args)))
	}
	if find.Type != nil {
		args = append(args, *find.Type)
		where = append(where, "type = "+placeholder(len(args)))
	}
	if find.SinceTs != nil {
		args = append(args, *find.SinceTs)
		where = append(where, "created_ts >= "+placeholder(len(args)))
	}

	query := `SELECT id, user_id, type, payload, context, session_id, created_ts
		FROM interaction
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	list := []*store.Interaction{}
	for rows.Next() {
		interaction := &store.Interaction{}
		if err := rows.Scan(
			&interaction.ID,
			&interaction.UserID,
			&interaction.Type,
			&interaction.Payload,
			&interaction.Context,
			&interaction.SessionID,
			&interaction.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		list = append(list, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return list, nil
}

func (d *DB) AggregateInteractionTypes(ctx context.Context, sinceTs int64, limit int) ([]*store.TypeCount, error) {
	query := `SELECT type, COUNT(*) AS cnt FROM interaction
		WHERE created_ts >= ` + placeholder(1) + `
		GROUP BY type
		ORDER BY cnt DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.QueryContext(ctx, query, sinceTs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interaction types: %w", err)
	}
	defer rows.Close()

	counts := []*store.TypeCount{}
	for rows.Next() {
		tc := &store.TypeCount{}
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate type counts: %w", err)
	}
	return counts, nil
}

func (d *DB) ListActiveUserIDs(ctx context.Context, sinceTs int64) ([]int32, error) {
	query := `SELECT DISTINCT user_id FROM interaction WHERE created_ts >= ` + placeholder(1) + ` ORDER BY user_id`

	rows, err := d.db.QueryContext(ctx, query, sinceTs)
	if err != nil {
		return nil, fmt.Errorf("failed to list active user ids: %w", err)
	}
	defer rows.Close()

	ids := []int32{}
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}
	return ids, nil
}
