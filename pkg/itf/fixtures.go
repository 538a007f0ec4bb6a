// Package itf carries shared test fixtures for service-level tests that
// exercise business rules against in-memory repositories.
package itf

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewplane/crewplane/pkg/composables"
)

// Context returns a context scoped to the given tenant and user, carrying
// a no-op transaction so transactional service helpers run the callback
// directly against in-memory repositories.
func Context(tenantID, userID uuid.UUID) context.Context {
	ctx := composables.WithTx(context.Background(), NopTx{})
	ctx = composables.WithTenantID(ctx, tenantID)
	return composables.WithIdentity(ctx, composables.Identity{UserID: userID})
}

// ContextWithIdentity is like Context but with full control over the
// caller identity, for impersonation and audit scenarios.
func ContextWithIdentity(tenantID uuid.UUID, identity composables.Identity) context.Context {
	ctx := composables.WithTx(context.Background(), NopTx{})
	ctx = composables.WithTenantID(ctx, tenantID)
	return composables.WithIdentity(ctx, identity)
}

var errNopTx = errors.New("nop transaction does not reach a database")

// NopTx satisfies pgx.Tx without a database. In-memory repositories never
// touch it; any accidental SQL through it fails loudly.
type NopTx struct{}

func (NopTx) Begin(_ context.Context) (pgx.Tx, error) { return NopTx{}, nil }
func (NopTx) Commit(_ context.Context) error          { return nil }
func (NopTx) Rollback(_ context.Context) error        { return nil }

func (NopTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errNopTx
}

func (NopTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (NopTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }

func (NopTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errNopTx
}

func (NopTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNopTx
}

func (NopTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errNopTx
}

func (NopTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return errRow{}
}

func (NopTx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(_ ...any) error { return errNopTx }
