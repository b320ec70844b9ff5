package domain

import (
	"context"
	"time"
)

// Conflict classifies why a candidate window is rejected.
type Conflict int

const (
	ConflictNone Conflict = iota
	// ConflictSchoolYear means another planned session addresses the same cohort.
	ConflictSchoolYear
	// ConflictProfessor means the professor already teaches at that time.
	ConflictProfessor
)

func (c Conflict) String() string {
	switch c {
	case ConflictSchoolYear:
		return "school_year"
	case ConflictProfessor:
		return "professor"
	default:
		return "none"
	}
}

// Candidate is a proposed session window.
type Candidate struct {
	Start       time.Time
	Duration    time.Duration
	ProfessorID string
	SchoolYear  SchoolYear
	// ExcludeID skips the session being edited.
	ExcludeID string
}

// End returns the end of the candidate window.
func (c Candidate) End() time.Time {
	return c.Start.Add(c.Duration)
}

// Intersects reports whether [aStart, aEnd) and [bStart, bEnd) share an
// instant. Windows that only touch at an endpoint do not intersect.
func Intersects(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Classify returns the conflict between candidate and existing sessions.
// Only planned sessions are considered. A school-year conflict takes
// precedence over a professor conflict.
func Classify(candidate Candidate, existing []Eclass) Conflict {
	professorConflict := false
	for _, e := range existing {
		if e.Status != StatusPlanned || (candidate.ExcludeID != "" && e.ID == candidate.ExcludeID) {
			continue
		}
		if !Intersects(e.Start, e.End(), candidate.Start, candidate.End()) {
			continue
		}
		if e.Subject.SchoolYear == candidate.SchoolYear {
			return ConflictSchoolYear
		}
		if e.ProfessorID == candidate.ProfessorID {
			professorConflict = true
		}
	}
	if professorConflict {
		return ConflictProfessor
	}
	return ConflictNone
}

// OverlapChecker checks candidates against persisted planned sessions.
type OverlapChecker struct {
	store Store
}

// NewOverlapChecker builds a checker over store.
func NewOverlapChecker(store Store) *OverlapChecker {
	return &OverlapChecker{store: store}
}

// Check loads the intersecting planned sessions and classifies the candidate.
func (c *OverlapChecker) Check(ctx context.Context, candidate Candidate) (Conflict, error) {
	if c == nil || c.store == nil {
		return ConflictNone, ErrStoreNotConfigured
	}
	existing, err := c.store.ListOverlapping(ctx, candidate.Start, candidate.End(), candidate.ExcludeID)
	if err != nil {
		return ConflictNone, err
	}
	return Classify(candidate, existing), nil
}

// Horizon bounds how far ahead a session may be planned.
type Horizon struct {
	Months int
}

// DefaultHorizon is two calendar months.
var DefaultHorizon = Horizon{Months: 2}

// Contains reports whether start is after now and no later than now plus
// the horizon.
func (h Horizon) Contains(now, start time.Time) bool {
	months := h.Months
	if months <= 0 {
		months = DefaultHorizon.Months
	}
	return start.After(now) && !start.After(now.AddDate(0, months, 0))
}
