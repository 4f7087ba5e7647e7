package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) CreateMoodEntry(ctx context.Context, create *store.MoodEntry) (*store.MoodEntry, error) {
	stmt := `INSERT INTO mood_entry (user_id, category, confidence, stress_level, anxiety_level, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Category,
		create.Confidence,
		create.StressLevel,
		create.AnxietyLevel,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create mood_entry: %w", err)
	}
	return create, nil
}

func (d *DB) ListMoodEntries(ctx context.Context, find *store.FindMoodEntry) ([]*store.MoodEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, "user_id = "+placeholder(len(args)))
	}
	if find.SinceTs != nil {
		args = append(args, *find.SinceTs)
		where = append(where, "created_ts >= "+placeholder(len(args)))
	}

	query := `SELECT id, user_id, category, confidence, stress_level, anxiety_level, created_ts
		FROM mood_entry
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood_entry: %w", err)
	}
	defer rows.Close()

	list := []*store.MoodEntry{}
	for rows.Next() {
		entry := &store.MoodEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Category,
			&entry.Confidence,
			&entry.StressLevel,
			&entry.AnxietyLevel,
			&entry.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mood_entry: %w", err)
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood_entry: %w", err)
	}
	return list, nil
}
