package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

// PostgresDeliveryLog keeps an audit trail of delivered posts. It is never
// consulted for dedup; the file ledger stays authoritative.
type PostgresDeliveryLog struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DeliveryLog = (*PostgresDeliveryLog)(nil)

// NewPostgresDeliveryLog wires a sql.DB implementation.
func NewPostgresDeliveryLog(db *sql.DB) *PostgresDeliveryLog {
	return &PostgresDeliveryLog{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Record inserts one row per delivered post; rows already present are left
// alone so re-recording after a duplicate delivery stays silent.
func (r *PostgresDeliveryLog) Record(ctx context.Context, posts []domain.DeliveredPost) error {
	if r.db == nil || len(posts) == 0 {
		return nil
	}

	insert := r.builder.
		Insert("delivered_posts").
		Columns("post_key", "site", "board", "post_no", "title", "url", "delivered_at")

	for _, p := range posts {
		insert = insert.Values(p.ID.Key(), p.ID.Site, p.ID.Board, p.ID.Number, p.Title, p.URL, p.DeliveredAt)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (post_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record delivered: %w", err)
	}

	return nil
}

// DeliveredCount reports how many posts the audit table holds for a board.
func (r *PostgresDeliveryLog) DeliveredCount(ctx context.Context, site, board string) (int, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := r.builder.
		Select("COUNT(*)").
		From("delivered_posts").
		Where(sq.Eq{"site": site, "board": board}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count delivered: %w", err)
	}

	return count, nil
}
