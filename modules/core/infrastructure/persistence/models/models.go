package models

import (
	"database/sql"
	"time"
)

type Tenant struct {
	ID        string
	Name      string
	Domain    sql.NullString
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID            string
	TenantID      string
	Email         string
	DisplayName   string
	Status        string
	IsSystemAdmin bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Group struct {
	ID            string
	TenantID      string
	Name          string
	IsSystemAdmin bool
	CreatedAt     time.Time
}

type Archive struct {
	ID         string
	TenantID   string
	EntityType string
	EntityID   string
	Status     string
	Snapshot   []byte
	DeletedBy  string
	CreatedAt  time.Time
}
