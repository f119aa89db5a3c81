package services

import (
	"context"
	"fmt"
	"time"
)

// AvailabilityResolver decides whether a candidate slot is free on the
// external calendar.
type AvailabilityResolver struct {
	calendar Calendar
	loc      *time.Location
}

// NewAvailabilityResolver creates a resolver bound to the clinic timezone.
func NewAvailabilityResolver(cal Calendar, loc *time.Location) *AvailabilityResolver {
	return &AvailabilityResolver{calendar: cal, loc: loc}
}

// IsFree converts the civil slot to an absolute UTC interval and scans the
// calendar for overlaps. Intervals are half-open, so an event ending exactly
// when the request starts does not conflict. A query failure is returned as
// an error and never treated as "free".
func (r *AvailabilityResolver) IsFree(ctx context.Context, date CivilDate, start TimeOfDay, durationMin int) (bool, error) {
	if r.calendar == nil {
		return false, fmt.Errorf("calendar not configured")
	}

	startAt := date.At(start, r.loc)
	endAt := startAt.Add(time.Duration(durationMin) * time.Minute)

	busy, err := r.calendar.QueryBusy(ctx, startAt.UTC(), endAt.UTC())
	if err != nil {
		return false, err
	}

	for _, b := range busy {
		if b.Start.Before(endAt) && b.End.After(startAt) {
			return false, nil
		}
	}
	return true, nil
}
