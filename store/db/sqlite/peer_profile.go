package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wellspring-io/wellspring/store"
)

func (d *DB) UpsertPeerProfile(ctx context.Context, upsert *store.UpsertPeerProfile) (*store.PeerProfile, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO peer_profile (user_id, interests, experiences, communication_style, age_range, active_buckets, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			interests = EXCLUDED.interests,
			experiences = EXCLUDED.experiences,
			communication_style = EXCLUDED.communication_style,
			age_range = EXCLUDED.age_range,
			active_buckets = EXCLUDED.active_buckets,
			updated_ts = EXCLUDED.updated_ts
		RETURNING user_id, interests, experiences, communication_style, age_range, active_buckets, updated_ts`

	result := &store.PeerProfile{}
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.Interests,
		upsert.Experiences,
		upsert.CommunicationStyle,
		upsert.AgeRange,
		upsert.ActiveBuckets,
		now,
	).Scan(
		&result.UserID,
		&result.Interests,
		&result.Experiences,
		&result.CommunicationStyle,
		&result.AgeRange,
		&result.ActiveBuckets,
		&result.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert peer_profile: %w", err)
	}
	return result, nil
}

func (d *DB) ListPeerProfiles(ctx context.Context, find *store.FindPeerProfile) ([]*store.PeerProfile, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.ExcludeUserID != nil {
		where, args = append(where, "user_id != ?"), append(args, *find.ExcludeUserID)
	}

	query := `SELECT user_id, interests, experiences, communication_style, age_range, active_buckets, updated_ts
		FROM peer_profile
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list peer_profile: %w", err)
	}
	defer rows.Close()

	list := []*store.PeerProfile{}
	for rows.Next() {
		pp := &store.PeerProfile{}
		if err := rows.Scan(
			&pp.UserID,
			&pp.Interests,
			&pp.Experiences,
			&pp.CommunicationStyle,
			&pp.AgeRange,
			&pp.ActiveBuckets,
			&pp.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan peer_profile: %w", err)
		}
		list = append(list, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate peer_profile: %w", err)
	}
	return list, nil
}
