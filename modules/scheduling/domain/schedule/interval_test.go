package schedule_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

type testEntry struct {
	id       uuid.UUID
	resource uuid.UUID
	interval schedule.Interval
	blocking bool
}

func (e testEntry) EntryID() uuid.UUID        { return e.id }
func (e testEntry) ResourceKey() uuid.UUID    { return e.resource }
func (e testEntry) Interval() schedule.Interval { return e.interval }
func (e testEntry) Blocking() bool            { return e.blocking }

func TestNewInterval_Validation(t *testing.T) {
	_, err := schedule.NewInterval(at(11, 0), at(10, 0))
	require.ErrorIs(t, err, schedule.ErrInvalidInterval)

	_, err = schedule.NewInterval(at(10, 0), at(10, 0))
	require.ErrorIs(t, err, schedule.ErrInvalidInterval, "zero-length interval is invalid")

	iv, err := schedule.NewInterval(at(10, 0), at(11, 0))
	require.NoError(t, err)
	require.Equal(t, time.Hour, iv.Duration())
}

func TestInterval_Overlaps_HalfOpen(t *testing.T) {
	morning := schedule.MustInterval(at(10, 0), at(11, 0))

	// Exact touch is not a conflict.
	require.False(t, morning.Overlaps(schedule.MustInterval(at(11, 0), at(12, 0))))
	require.False(t, schedule.MustInterval(at(9, 0), at(10, 0)).Overlaps(morning))

	// One minute of overlap is.
	require.True(t, morning.Overlaps(schedule.MustInterval(at(10, 59), at(11, 30))))

	// Containment in both directions.
	require.True(t, morning.Overlaps(schedule.MustInterval(at(9, 0), at(17, 0))))
	require.True(t, schedule.MustInterval(at(9, 0), at(17, 0)).Overlaps(morning))
}

func TestInterval_Overlaps_Symmetry(t *testing.T) {
	cases := []struct{ a, b schedule.Interval }{
		{schedule.MustInterval(at(9, 0), at(10, 0)), schedule.MustInterval(at(10, 0), at(11, 0))},
		{schedule.MustInterval(at(9, 0), at(12, 0)), schedule.MustInterval(at(10, 0), at(11, 0))},
		{schedule.MustInterval(at(9, 0), at(10, 30)), schedule.MustInterval(at(10, 0), at(11, 0))},
		{schedule.MustInterval(at(9, 0), at(10, 0)), schedule.MustInterval(at(15, 0), at(16, 0))},
	}
	for _, tc := range cases {
		require.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a))
	}
}

func TestHasConflict(t *testing.T) {
	space := uuid.New()
	otherSpace := uuid.New()
	existingID := uuid.New()

	entries := []schedule.Entry{
		testEntry{id: existingID, resource: space, interval: schedule.MustInterval(at(9, 0), at(17, 0)), blocking: true},
		testEntry{id: uuid.New(), resource: space, interval: schedule.MustInterval(at(18, 0), at(19, 0)), blocking: false},
		testEntry{id: uuid.New(), resource: otherSpace, interval: schedule.MustInterval(at(9, 0), at(17, 0)), blocking: true},
	}

	require.True(t, schedule.HasConflict(entries, space, schedule.MustInterval(at(10, 0), at(11, 0)), uuid.Nil))
	require.False(t, schedule.HasConflict(entries, space, schedule.MustInterval(at(17, 0), at(18, 0)), uuid.Nil),
		"booking starting exactly at the end of another must succeed")

	// Non-blocking entries never conflict.
	require.False(t, schedule.HasConflict(entries, space, schedule.MustInterval(at(18, 0), at(19, 0)), uuid.Nil))

	// The entry being rescheduled does not conflict with itself.
	require.False(t, schedule.HasConflict(entries, space, schedule.MustInterval(at(10, 0), at(11, 0)), existingID))
}
