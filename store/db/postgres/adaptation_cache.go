package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) UpsertAdaptationCache(ctx context.Context, upsert *store.UpsertAdaptationCache) (*store.AdaptationCache, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO adaptation_cache (user_id, signature, score, recommendations, created_ts, expires_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (user_id, signature) DO UPDATE SET
			score = EXCLUDED.score,
			recommendations = EXCLUDED.recommendations,
			created_ts = EXCLUDED.created_ts,
			expires_ts = EXCLUDED.expires_ts
		RETURNING user_id, signature, score, recommendations, created_ts, expires_ts`

	result := &store.AdaptationCache{}
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.Signature,
		upsert.Score,
		upsert.Recommendations,
		now,
		upsert.ExpiresTs,
	).Scan(
		&result.UserID,
		&result.Signature,
		&result.Score,
		&result.Recommendations,
		&result.CreatedTs,
		&result.ExpiresTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert adaptation_cache: %w", err)
	}
	return result, nil
}

func (d *DB) ListAdaptationCaches(ctx context.Context, find *store.FindAdaptationCache) ([]*store.AdaptationCache, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, "user_id = "+placeholder(len(args)))
	}
	if find.Signature != nil {
		args = append(args, *find.Signature)
		where = append(where, "signature = "+placeholder(len(args)))
	}

	query := `SELECT user_id, signature, score, recommendations, created_ts, expires_ts
		FROM adaptation_cache
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list adaptation_cache: %w", err)
	}
	defer rows.Close()

	list := []*store.AdaptationCache{}
	for rows.Next() {
		entry := &store.AdaptationCache{}
		if err := rows.Scan(
			&entry.UserID,
			&entry.Signature,
			&entry.Score,
			&entry.Recommendations,
			&entry.CreatedTs,
			&entry.ExpiresTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan adaptation_cache: %w", err)
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adaptation_cache: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteExpiredAdaptationCaches(ctx context.Context, delete *store.DeleteExpiredAdaptationCache) (int64, error) {
	stmt := `DELETE FROM adaptation_cache WHERE user_id = ` + placeholder(1) + ` AND expires_ts <= ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, delete.UserID, delete.BeforeTs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired adaptation_cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
