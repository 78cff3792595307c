package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// Period is a half-open time interval [From, To).
// Consolidation scopes consumption records by period.
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod creates a period, rejecting empty or inverted intervals. Bounds
// are stored in UTC so drivers that compare timestamps as text (sqlite)
// match the same instants as Postgres.
func NewPeriod(from, to time.Time) (Period, error) {
	if from.IsZero() || to.IsZero() {
		return Period{}, errors.New("period bounds cannot be empty")
	}
	if !from.Before(to) {
		return Period{}, fmt.Errorf("period start %s must be before end %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return Period{From: from.UTC(), To: to.UTC()}, nil
}

// MonthPeriod returns the calendar month containing t, in t's location,
// with the bounds converted to UTC
func MonthPeriod(t time.Time) Period {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{From: from.UTC(), To: from.AddDate(0, 1, 0).UTC()}
}

// Contains reports whether t falls in [From, To)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

// Equals compares both bounds as instants
func (p Period) Equals(other Period) bool {
	return p.From.Equal(other.From) && p.To.Equal(other.To)
}

// String renders the UTC period as "[2024-01-01, 2024-02-01)"
func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly))
}
