package models

import (
	"database/sql"
	"time"
)

type Project struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WbsElement struct {
	ID             string
	TenantID       string
	ProjectID      string
	Code           string
	Name           string
	ApprovalStatus string
	Status         string
	ApproverUserID sql.NullString
	ApprovedAt     sql.NullTime
	ApprovalNotes  sql.NullString
	Version        int64
	IsDeleted      bool
	DeletedAt      sql.NullTime
	DeletedBy      sql.NullString
	DeletionReason sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type WbsStatusHistory struct {
	ID           string
	WbsElementID string
	TenantID     string
	FromStatus   string
	ToStatus     string
	ByUserID     string
	Notes        sql.NullString
	CreatedAt    time.Time
}
