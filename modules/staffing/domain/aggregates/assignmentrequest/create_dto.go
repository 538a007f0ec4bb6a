package assignmentrequest

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/constants"
	"github.com/crewplane/crewplane/pkg/serrors"
)

type CreateDTO struct {
	RequestedForUserID uuid.UUID `validate:"required"`
	ProjectID          uuid.UUID
	WbsElementID       *uuid.UUID
	ApproverGroupID    *uuid.UUID
	StartDate          time.Time `validate:"required"`
	EndDate            time.Time `validate:"required"`
	AllocationPct      int
	Notes              string
}

// Ok runs structural validation plus the cross-field rules the tags
// cannot express. Everything here is checked before any store call.
func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	errs := serrors.ValidationErrors{}
	if err := constants.Validate.Struct(d); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			errs = serrors.FromValidator(vErrs)
		}
	}
	if d.ProjectID == uuid.Nil {
		errs["ProjectID"] = ErrProjectRequired
	}
	if !d.StartDate.IsZero() && !d.EndDate.IsZero() && d.StartDate.After(d.EndDate) {
		errs["StartDate"] = ErrInvalidDateRange
	}
	return errs, len(errs) == 0
}

// ToEntity builds the pending request. The caller resolves the approver
// group (validating or defaulting it) before this point.
func (d *CreateDTO) ToEntity(tenantID, requestedBy, approverGroupID uuid.UUID) AssignmentRequest {
	return New(
		tenantID,
		requestedBy,
		d.RequestedForUserID,
		d.ProjectID,
		d.WbsElementID,
		approverGroupID,
		d.StartDate,
		d.EndDate,
		d.AllocationPct,
		d.Notes,
	)
}
