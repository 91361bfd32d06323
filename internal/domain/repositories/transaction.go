package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles store transactions. Position batches and
// cross-folder moves must run under ExecTx so sibling lists never expose
// partial writes.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
