package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/constants"
)

var ErrNoTenant = errors.New("no tenant found in context")

// WithTenantID threads the acting tenant through the context. Every
// repository reads it at the top of each call; there is no ambient filter.
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenant
	}
	return tenantID, nil
}
