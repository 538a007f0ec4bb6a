package persistence

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	"github.com/crewplane/crewplane/modules/projects/domain/entities/project"
	"github.com/crewplane/crewplane/modules/projects/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/mapping"
)

func toDomainProject(m *models.Project) *project.Project {
	return project.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		m.Name,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainWbsElement(m *models.WbsElement, history []wbselement.HistoryRecord) *wbselement.WbsElement {
	var approver *uuid.UUID
	if m.ApproverUserID.Valid {
		id := parseUUID(m.ApproverUserID.String)
		approver = &id
	}
	return wbselement.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.ProjectID),
		m.Code,
		m.Name,
		wbselement.ApprovalStatus(m.ApprovalStatus),
		wbselement.Status(m.Status),
		approver,
		mapping.SQLNullTimeToPointer(m.ApprovedAt),
		m.ApprovalNotes.String,
		history,
		m.Version,
		deletionState(m.IsDeleted, mapping.SQLNullTimeToPointer(m.DeletedAt), m.DeletedBy.String, m.DeletionReason.String),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainHistory(m *models.WbsStatusHistory) wbselement.HistoryRecord {
	return wbselement.HistoryRecord{
		ID:       parseUUID(m.ID),
		From:     wbselement.ApprovalStatus(m.FromStatus),
		To:       wbselement.ApprovalStatus(m.ToStatus),
		ByUserID: parseUUID(m.ByUserID),
		Notes:    m.Notes.String,
		At:       m.CreatedAt,
	}
}

func parseUUID(v string) uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
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
