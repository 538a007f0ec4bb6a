package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/serrors"
)

func useTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get tenant from context: %w", err)
	}
	return tenantID, nil
}

// translateDBError maps cancellation of an in-flight store call onto the
// Timeout kind; everything else passes through for the caller to classify.
func translateDBError(err error) error {
	if err == nil {
		return nil
	}
	return serrors.MapContext(err)
}
