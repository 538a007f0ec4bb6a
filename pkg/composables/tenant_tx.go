package composables

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/pkg/constants"
)

// InTenantTx runs fn inside a tenant-scoped transaction. When the
// context already carries a transaction, fn joins it after the tenant
// RLS settings are applied; commit and rollback stay with whoever
// opened it. Otherwise a new transaction is opened via InTx.
func InTenantTx(ctx context.Context, fn func(context.Context) error) error {
	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		if err := ApplyTenantRLS(ctx, existing); err != nil {
			return err
		}
		return fn(ctx)
	}
	return InTx(ctx, fn)
}

// InTenantTxResult is InTenantTx for callers that produce a value.
func InTenantTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTenantTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
