package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within a
// database transaction, passing the underlying transaction handle via `tx`.
//
// Repository methods accept `tx Tx` and detect a concrete handle
// implementation-side (pgx.Tx for Postgres); they MUST gracefully accept a nil
// tx (non-transactional path). This keeps use-case interfaces free of storage
// types while still allowing SELECT ... FOR UPDATE inside a transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
