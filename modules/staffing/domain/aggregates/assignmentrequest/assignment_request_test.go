package assignmentrequest_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignmentrequest"
)

func TestNormalizeAllocation(t *testing.T) {
	require.Equal(t, 100, assignmentrequest.NormalizeAllocation(0))
	require.Equal(t, 200, assignmentrequest.NormalizeAllocation(300))
	require.Equal(t, 150, assignmentrequest.NormalizeAllocation(150))
	require.Equal(t, 200, assignmentrequest.NormalizeAllocation(200))
	require.Equal(t, 1, assignmentrequest.NormalizeAllocation(1))

	// Idempotent on re-normalization.
	for _, pct := range []int{0, 1, 150, 200, 300} {
		once := assignmentrequest.NormalizeAllocation(pct)
		require.Equal(t, once, assignmentrequest.NormalizeAllocation(once))
	}
}

func newPendingRequest() assignmentrequest.AssignmentRequest {
	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	return assignmentrequest.New(
		uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		nil, uuid.New(),
		start, start.AddDate(0, 1, 0),
		0, "initial note",
	)
}

func TestAssignmentRequest_Approve(t *testing.T) {
	r := newPendingRequest()
	approver := uuid.New()

	approved, err := r.Approve(approver)
	require.NoError(t, err)
	require.Equal(t, assignmentrequest.StatusApproved, approved.Status())
	require.NotNil(t, approved.ResolvedAt())
	require.Equal(t, approver, *approved.ResolvedBy())

	_, err = approved.Approve(approver)
	require.ErrorIs(t, err, assignmentrequest.ErrAlreadyResolved)
	_, err = approved.Reject(approver, "no")
	require.ErrorIs(t, err, assignmentrequest.ErrAlreadyResolved)
}

func TestAssignmentRequest_Reject_AppendsReason(t *testing.T) {
	r := newPendingRequest()

	rejected, err := r.Reject(uuid.New(), "headcount frozen")
	require.NoError(t, err)
	require.Equal(t, assignmentrequest.StatusRejected, rejected.Status())
	require.Equal(t, "initial note\nheadcount frozen", rejected.Notes())
}

func TestCreateDTO_Ok(t *testing.T) {
	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	dto := &assignmentrequest.CreateDTO{
		RequestedForUserID: uuid.New(),
		ProjectID:          uuid.New(),
		StartDate:          start,
		EndDate:            start.AddDate(0, 1, 0),
	}
	errs, ok := dto.Ok()
	require.True(t, ok, "errors: %v", errs)

	noProject := *dto
	noProject.ProjectID = uuid.Nil
	errs, ok = noProject.Ok()
	require.False(t, ok)
	require.ErrorIs(t, errs["ProjectID"], assignmentrequest.ErrProjectRequired)

	backwards := *dto
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	errs, ok = backwards.Ok()
	require.False(t, ok)
	require.ErrorIs(t, errs["StartDate"], assignmentrequest.ErrInvalidDateRange)

	// A single-day request is a valid range.
	sameDay := *dto
	sameDay.EndDate = sameDay.StartDate
	_, ok = sameDay.Ok()
	require.True(t, ok)
}
