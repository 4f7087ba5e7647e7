package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) UpsertBehaviorProfile(ctx context.Context, upsert *store.UpsertBehaviorProfile) (*store.BehaviorProfile, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO behavior_profile (user_id, payload, created_ts, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_ts = EXCLUDED.updated_ts
		RETURNING user_id, payload, created_ts, updated_ts`

	result := &store.BehaviorProfile{}
	err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, upsert.Payload, now, now).Scan(
		&result.UserID,
		&result.Payload,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert behavior_profile: %w", err)
	}
	return result, nil
}

func (d *DB) GetBehaviorProfile(ctx context.Context, find *store.FindBehaviorProfile) (*store.BehaviorProfile, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `SELECT user_id, payload, created_ts, updated_ts FROM behavior_profile WHERE user_id = ?`

	result := &store.BehaviorProfile{}
	err := d.db.QueryRowContext(ctx, query, *find.UserID).Scan(
		&result.UserID,
		&result.Payload,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get behavior_profile: %w", err)
	}
	return result, nil
}
