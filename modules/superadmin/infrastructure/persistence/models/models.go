package models

import (
	"database/sql"
	"time"
)

type ImpersonationSession struct {
	ID                 string
	TenantID           string
	AdminUserID        string
	ImpersonatedUserID string
	Reason             string
	IP                 sql.NullString
	UserAgent          sql.NullString
	StartedAt          time.Time
	EndedAt            sql.NullTime
	EndReason          sql.NullString
}

type AuditLog struct {
	ID          string
	TenantID    string
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Message     sql.NullString
	IP          sql.NullString
	UserAgent   sql.NullString
	CreatedAt   time.Time
}
