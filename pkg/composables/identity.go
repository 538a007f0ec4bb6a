package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/constants"
)

var ErrNoIdentity = errors.New("no identity found in context")

// Identity is the acting principal resolved for the current request.
//
// During an impersonation session UserID is the impersonated user and
// drives authorization, while ActualUserID stays the original admin and
// is what every audit and session operation keys off.
type Identity struct {
	UserID                 uuid.UUID
	ActualUserID           uuid.UUID
	IsSystemAdmin          bool
	ImpersonationSessionID *uuid.UUID
}

func (i Identity) Impersonating() bool {
	return i.ImpersonationSessionID != nil
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if identity.ActualUserID == uuid.Nil {
		identity.ActualUserID = identity.UserID
	}
	return context.WithValue(ctx, constants.IdentityKey, identity)
}

func UseIdentity(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(constants.IdentityKey).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return identity, nil
}

// UseUserID returns the acting user id (the impersonated user during a
// session).
func UseUserID(ctx context.Context) (uuid.UUID, error) {
	identity, err := UseIdentity(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return identity.UserID, nil
}
