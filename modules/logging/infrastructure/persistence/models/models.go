package models

import (
	"database/sql"
	"time"
)

type ActionLog struct {
	ID         string
	TenantID   string
	UserID     sql.NullString
	Action     string
	EntityType string
	EntityID   string
	Detail     sql.NullString
	CreatedAt  time.Time
}
