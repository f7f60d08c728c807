package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tables are unqualified; db.Connect pins search_path to the configured schema.
const (
	userTableName          = "users"
	requestTableName       = "requests"
	requestDonorTableName  = "request_donors"
	requestRejectTableName = "request_rejections"
	notificationTableName  = "notifications"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}
