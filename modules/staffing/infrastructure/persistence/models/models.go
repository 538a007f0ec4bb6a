package models

import (
	"database/sql"
	"time"
)

type Assignment struct {
	ID             string
	TenantID       string
	PersonID       string
	ProjectID      string
	WbsElementID   sql.NullString
	StartsAt       time.Time
	EndsAt         time.Time
	AllocationPct  int
	Status         string
	IsDeleted      bool
	DeletedAt      sql.NullTime
	DeletedBy      sql.NullString
	DeletionReason sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type AssignmentRequest struct {
	ID              string
	TenantID        string
	RequestedBy     string
	RequestedFor    string
	ProjectID       string
	WbsElementID    sql.NullString
	ApproverGroupID string
	StartDate       time.Time
	EndDate         time.Time
	AllocationPct   int
	Notes           sql.NullString
	Status          string
	ResolvedAt      sql.NullTime
	ResolvedBy      sql.NullString
	AssignmentID    sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
