package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrStatNotFound indicates no statistic exists for the requested pair.
	ErrStatNotFound = errors.New("storage: rate stat not found")
)

const (
	insertRateStatSQL = `INSERT INTO rate_stats (
        base,
        target,
        current_rate,
        avg_3y,
        status,
        calculated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id;`

	findLatestStatSQL = `SELECT
        id,
        base,
        target,
        current_rate::text,
        avg_3y::text,
        status,
        calculated_at
    FROM rate_stats
    WHERE base = $1
      AND target = $2
    ORDER BY calculated_at DESC
    LIMIT 1;`

	listStatsBetweenSQL = `SELECT
        id,
        base,
        target,
        current_rate::text,
        avg_3y::text,
        status,
        calculated_at
    FROM rate_stats
    WHERE base = $1
      AND target = $2
      AND calculated_at >= $3
      AND calculated_at < $4
    ORDER BY calculated_at;`

	listRecentStatsSQL = `SELECT
        id,
        base,
        target,
        current_rate::text,
        avg_3y::text,
        status,
        calculated_at
    FROM rate_stats
    WHERE base = $1
      AND target = $2
    ORDER BY calculated_at DESC
    LIMIT $3;`

	countStatsSQL = `SELECT COUNT(*) FROM rate_stats;`

	listActiveSubscriberIDsSQL = `SELECT DISTINCT user_id
    FROM notification_settings
    WHERE is_active;`

	listUsersByIDsSQL = `SELECT id, email
    FROM users
    WHERE id = ANY($1)
    ORDER BY id;`
)

// RateStatStore defines operations for rate statistic persistence.
type RateStatStore interface {
	InsertRateStat(ctx context.Context, stat RateStat) (RateStat, error)
	FindLatestRateStat(ctx context.Context, base, target string) (RateStat, error)
	ListStatsBetween(ctx context.Context, base, target string, from, to time.Time) ([]RateStat, error)
	ListRecentStats(ctx context.Context, base, target string, limit int) ([]RateStat, error)
	CountStats(ctx context.Context) (int64, error)
}

// SubscriberStore exposes read-only access to notification subscribers.
type SubscriberStore interface {
	ListActiveSubscriberIDs(ctx context.Context) ([]int64, error)
	ListUsersByIDs(ctx context.Context, ids []int64) ([]User, error)
}

// Store aggregates access to rate statistics and subscriber records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertRateStat appends a computed statistic and returns it with its
// assigned id. Rows are never updated or deduplicated.
func (s *Store) InsertRateStat(ctx context.Context, stat RateStat) (RateStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return RateStat{}, err
	}

	row := pool.QueryRow(ctx, insertRateStatSQL,
		stat.Base,
		stat.Target,
		stat.CurrentRate.String(),
		stat.Avg3Y.String(),
		stat.Status,
		stat.CalculatedAt,
	)
	if scanErr := row.Scan(&stat.ID); scanErr != nil {
		return RateStat{}, fmt.Errorf("insert rate stat: %w", scanErr)
	}
	return stat, nil
}

// FindLatestRateStat returns the most recent statistic for the exact
// pair, or ErrStatNotFound.
func (s *Store) FindLatestRateStat(ctx context.Context, base, target string) (RateStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return RateStat{}, err
	}

	rows, queryErr := pool.Query(ctx, findLatestStatSQL, base, target)
	if queryErr != nil {
		return RateStat{}, fmt.Errorf("find latest rate stat: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return RateStat{}, rows.Err()
		}
		return RateStat{}, ErrStatNotFound
	}

	stat, scanErr := scanRateStat(rows)
	if scanErr != nil {
		return RateStat{}, scanErr
	}
	return stat, nil
}

// ListStatsBetween lists statistics for a pair within a time window.
func (s *Store) ListStatsBetween(ctx context.Context, base, target string, from, to time.Time) ([]RateStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listStatsBetweenSQL, base, target, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list stats between: %w", queryErr)
	}
	defer rows.Close()

	return collectRateStats(rows, 0)
}

// ListRecentStats lists the most recent statistics for a pair in
// descending calculation order.
func (s *Store) ListRecentStats(ctx context.Context, base, target string, limit int) ([]RateStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentStatsSQL, base, target, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent stats: %w", queryErr)
	}
	defer rows.Close()

	return collectRateStats(rows, limit)
}

// CountStats counts stored statistics across all pairs.
func (s *Store) CountStats(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countStatsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count stats: %w", scanErr)
	}
	return count, nil
}

// ListActiveSubscriberIDs returns the distinct user ids with an active
// notification setting.
func (s *Store) ListActiveSubscriberIDs(ctx context.Context) ([]int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveSubscriberIDsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list active subscribers: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// ListUsersByIDs resolves user records for the given ids.
func (s *Store) ListUsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, queryErr := pool.Query(ctx, listUsersByIDsSQL, ids)
	if queryErr != nil {
		return nil, fmt.Errorf("list users by ids: %w", queryErr)
	}
	defer rows.Close()

	users := make([]User, 0, len(ids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func collectRateStats(rows pgx.Rows, capacity int) ([]RateStat, error) {
	stats := make([]RateStat, 0, capacity)
	for rows.Next() {
		stat, scanErr := scanRateStat(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		stats = append(stats, stat)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

func scanRateStat(rows pgx.Rows) (RateStat, error) {
	var (
		stat       RateStat
		currentStr string
		avgStr     string
	)

	if err := rows.Scan(
		&stat.ID,
		&stat.Base,
		&stat.Target,
		&currentStr,
		&avgStr,
		&stat.Status,
		&stat.CalculatedAt,
	); err != nil {
		return RateStat{}, err
	}

	current, err := decimal.NewFromString(currentStr)
	if err != nil {
		return RateStat{}, fmt.Errorf("parse current rate: %w", err)
	}
	avg, err := decimal.NewFromString(avgStr)
	if err != nil {
		return RateStat{}, fmt.Errorf("parse trailing average: %w", err)
	}

	stat.CurrentRate = current
	stat.Avg3Y = avg
	return stat, nil
}

var _ RateStatStore = (*Store)(nil)
var _ SubscriberStore = (*Store)(nil)
