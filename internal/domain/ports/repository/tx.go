package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function
// within a database transaction, passing the underlying handle via `tx`.
//
// Keeps use-case interfaces clean (no transaction types leaking out) and
// lets repository methods that accept a Tx detect a transactional handle
// implementation-side. Repositories MUST gracefully accept a nil Tx (the
// non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
