package assignment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrNotFound          = serrors.ErrNotFound.WithMessage("assignment not found")
	ErrInvalidTransition = serrors.NewError("INVALID_TRANSITION", "assignment status transition not allowed", "")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// Blocking reports whether the assignment claims the person's time for
// conflict detection. Only active assignments do.
func (s Status) Blocking() bool {
	return s == StatusActive
}

type Assignment struct {
	id            uuid.UUID
	tenantID      uuid.UUID
	personID      uuid.UUID
	projectID     uuid.UUID
	wbsElementID  *uuid.UUID
	interval      schedule.Interval
	allocationPct int
	status        Status
	deletion      lifecycle.State
	createdAt     time.Time
	updatedAt     time.Time
}

func New(tenantID, personID, projectID uuid.UUID, wbsElementID *uuid.UUID, interval schedule.Interval, allocationPct int) Assignment {
	now := time.Now()
	return Assignment{
		id:            uuid.New(),
		tenantID:      tenantID,
		personID:      personID,
		projectID:     projectID,
		wbsElementID:  wbsElementID,
		interval:      interval,
		allocationPct: allocationPct,
		status:        StatusActive,
		deletion:      lifecycle.Active(),
		createdAt:     now,
		updatedAt:     now,
	}
}

func Hydrate(
	id, tenantID, personID, projectID uuid.UUID,
	wbsElementID *uuid.UUID,
	interval schedule.Interval,
	allocationPct int,
	status Status,
	deletion lifecycle.State,
	createdAt, updatedAt time.Time,
) Assignment {
	return Assignment{
		id:            id,
		tenantID:      tenantID,
		personID:      personID,
		projectID:     projectID,
		wbsElementID:  wbsElementID,
		interval:      interval,
		allocationPct: allocationPct,
		status:        status,
		deletion:      deletion,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (a Assignment) ID() uuid.UUID               { return a.id }
func (a Assignment) TenantID() uuid.UUID         { return a.tenantID }
func (a Assignment) PersonID() uuid.UUID         { return a.personID }
func (a Assignment) ProjectID() uuid.UUID        { return a.projectID }
func (a Assignment) WbsElementID() *uuid.UUID    { return a.wbsElementID }
func (a Assignment) Interval() schedule.Interval { return a.interval }
func (a Assignment) AllocationPct() int          { return a.allocationPct }
func (a Assignment) Status() Status              { return a.status }
func (a Assignment) CreatedAt() time.Time        { return a.createdAt }
func (a Assignment) UpdatedAt() time.Time        { return a.updatedAt }
func (a Assignment) IsZero() bool                { return a.id == uuid.Nil }

func (a Assignment) EntityType() string        { return "assignment" }
func (a Assignment) Deletion() lifecycle.State { return a.deletion }

// Entry projection for the conflict scan: assignments key on the person.
func (a Assignment) EntryID() uuid.UUID     { return a.id }
func (a Assignment) ResourceKey() uuid.UUID { return a.personID }
func (a Assignment) Blocking() bool         { return a.status.Blocking() && !a.deletion.IsDeleted() }

func (a Assignment) End() (Assignment, error) {
	if a.status != StatusActive {
		return a, ErrInvalidTransition.WithMessage("only an active assignment can be ended")
	}
	a.status = StatusEnded
	a.updatedAt = time.Now()
	return a, nil
}

func (a Assignment) Cancel() (Assignment, error) {
	if a.status != StatusActive {
		return a, ErrInvalidTransition.WithMessage("only an active assignment can be cancelled")
	}
	a.status = StatusCancelled
	a.updatedAt = time.Now()
	return a, nil
}

type snapshot struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	PersonID      uuid.UUID  `json:"person_id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	WbsElementID  *uuid.UUID `json:"wbs_element_id,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	AllocationPct int        `json:"allocation_pct"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (a Assignment) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:            a.id,
		TenantID:      a.tenantID,
		PersonID:      a.personID,
		ProjectID:     a.projectID,
		WbsElementID:  a.wbsElementID,
		StartsAt:      a.interval.Start(),
		EndsAt:        a.interval.End(),
		AllocationPct: a.allocationPct,
		Status:        a.status,
		CreatedAt:     a.createdAt,
	})
}
