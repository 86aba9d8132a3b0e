package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type TxManager interface {
	Run(ctx context.Context, fn func(ctxTx context.Context, tx Transaction) error) error
	Conn() Transaction
}

// Transaction is the query surface shared by a pgx pool and an open
// transaction, so callers can run one-shot statements and transactional
// batches through the same code.
type Transaction interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
