package persistence

import (
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/auditlog"
	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/impersonation"
	"github.com/crewplane/crewplane/modules/superadmin/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/mapping"
)

func toDomainSession(m *models.ImpersonationSession) impersonation.Session {
	var endReason *impersonation.EndReason
	if m.EndReason.Valid {
		r := impersonation.EndReason(m.EndReason.String)
		endReason = &r
	}
	return impersonation.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.AdminUserID),
		parseUUID(m.ImpersonatedUserID),
		m.Reason,
		m.IP.String,
		m.UserAgent.String,
		m.StartedAt,
		mapping.SQLNullTimeToPointer(m.EndedAt),
		endReason,
	)
}

func toDomainAuditLog(m *models.AuditLog) *auditlog.AuditLog {
	return &auditlog.AuditLog{
		ID:          parseUUID(m.ID),
		TenantID:    parseUUID(m.TenantID),
		ActorUserID: parseUUID(m.ActorUserID),
		Action:      m.Action,
		EntityType:  m.EntityType,
		EntityID:    parseUUID(m.EntityID),
		Message:     m.Message.String,
		IP:          m.IP.String,
		UserAgent:   m.UserAgent.String,
		CreatedAt:   m.CreatedAt,
	}
}

func parseUUID(v string) uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
}
