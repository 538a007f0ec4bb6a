package persistence

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignment"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignmentrequest"
	"github.com/crewplane/crewplane/modules/staffing/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/mapping"
)

func toDomainAssignment(m *models.Assignment) assignment.Assignment {
	return assignment.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.PersonID),
		parseUUID(m.ProjectID),
		nullableUUID(m.WbsElementID.String, m.WbsElementID.Valid),
		schedule.MustInterval(m.StartsAt, m.EndsAt),
		m.AllocationPct,
		assignment.Status(m.Status),
		deletionState(m.IsDeleted, mapping.SQLNullTimeToPointer(m.DeletedAt), m.DeletedBy.String, m.DeletionReason.String),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainRequest(m *models.AssignmentRequest) assignmentrequest.AssignmentRequest {
	return assignmentrequest.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.RequestedBy),
		parseUUID(m.RequestedFor),
		parseUUID(m.ProjectID),
		nullableUUID(m.WbsElementID.String, m.WbsElementID.Valid),
		parseUUID(m.ApproverGroupID),
		m.StartDate,
		m.EndDate,
		m.AllocationPct,
		m.Notes.String,
		assignmentrequest.Status(m.Status),
		mapping.SQLNullTimeToPointer(m.ResolvedAt),
		nullableUUID(m.ResolvedBy.String, m.ResolvedBy.Valid),
		nullableUUID(m.AssignmentID.String, m.AssignmentID.Valid),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func deletionState(deleted bool, at *time.Time, by, reason string) lifecycle.State {
	if !deleted {
		return lifecycle.Active()
	}
	var ts time.Time
	if at != nil {
		ts = *at
	}
	return lifecycle.Deleted(parseUUID(by), reason, ts)
}

func nullableUUID(v string, valid bool) *uuid.UUID {
	if !valid {
		return nil
	}
	id := parseUUID(v)
	return &id
}

func parseUUID(v string) uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func uuidPtrToArg(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}
