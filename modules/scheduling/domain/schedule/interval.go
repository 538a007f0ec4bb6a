// Package schedule holds the interval math shared by space bookings and
// personnel assignments. Intervals are half-open: [Start, End). An entry
// ending exactly when another starts does not conflict.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrInvalidInterval     = serrors.NewError("INVALID_INTERVAL", "interval start must be before end", "")
	ErrConflictingInterval = serrors.NewError("CONFLICTING_INTERVAL", "interval overlaps an existing blocking entry", "")
)

type Interval struct {
	start time.Time
	end   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{start: start, end: end}, nil
}

// MustInterval is for tests and hydration from rows already validated on
// the way in.
func MustInterval(start, end time.Time) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (i Interval) Start() time.Time { return i.start }
func (i Interval) End() time.Time   { return i.end }

func (i Interval) Duration() time.Duration { return i.end.Sub(i.start) }

func (i Interval) Overlaps(other Interval) bool {
	return i.start.Before(other.end) && other.start.Before(i.end)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.start) && t.Before(i.end)
}

// Entry is a scheduled claim on a resource. Bookings key on the space,
// assignments on the person; Blocking reports whether the entry's current
// status counts toward conflict detection.
type Entry interface {
	EntryID() uuid.UUID
	ResourceKey() uuid.UUID
	Interval() Interval
	Blocking() bool
}

// HasConflict scans entries for a blocking overlap with candidate on the
// given resource. Pure read; callers must re-run the check inside the
// transaction that performs the write, and the store's exclusion
// constraint closes the remaining race.
func HasConflict(entries []Entry, resourceKey uuid.UUID, candidate Interval, excludeID uuid.UUID) bool {
	for _, e := range entries {
		if e.EntryID() == excludeID {
			continue
		}
		if e.ResourceKey() != resourceKey || !e.Blocking() {
			continue
		}
		if candidate.Overlaps(e.Interval()) {
			return true
		}
	}
	return false
}
