// Package recurrence turns a recurring transaction into a bounded,
// deterministic sequence of future calendar occurrences.
package recurrence

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/omnitrack/ledger/internal/calendar"
	"github.com/omnitrack/ledger/internal/domain"
)

// OccurrenceCount is the fixed number of occurrences projected per
// recurring transaction, the first one falling on the transaction date.
const OccurrenceCount = 12

// Occurrences computes the projected events for a recurring transaction.
// Monthly and yearly stepping is anchored to the origin day: stepping
// Jan 31 monthly yields Feb 28 (29 in leap years) and then Mar 31, never
// an overflow into the next month.
func Occurrences(tx *domain.Transaction) ([]domain.ProjectedEvent, error) {
	if !tx.IsRecurring {
		return nil, fmt.Errorf("%w: transaction %s is not recurring", domain.ErrValidation, tx.ID)
	}
	if !tx.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown recurrence frequency %q", domain.ErrValidation, tx.Frequency)
	}

	title := eventTitle(tx)
	events := make([]domain.ProjectedEvent, 0, OccurrenceCount)
	for i := 0; i < OccurrenceCount; i++ {
		events = append(events, domain.ProjectedEvent{
			Title:      title,
			Date:       occurrenceDate(tx.Date, tx.Frequency, i),
			AllDay:     true,
			OriginType: domain.OriginTypeTransaction,
			OriginID:   tx.ID,
		})
	}
	return events, nil
}

// occurrenceDate returns the date of the i-th occurrence (i=0 is the
// transaction date itself). Each step is computed from the origin, not
// from the previous occurrence, so the day-of-month anchor survives
// clamping in short months.
func occurrenceDate(origin civil.Date, freq domain.Frequency, i int) civil.Date {
	switch freq {
	case domain.FrequencyWeekly:
		return origin.AddDays(7 * i)
	case domain.FrequencyMonthly:
		return addMonths(origin, i)
	case domain.FrequencyYearly:
		return addMonths(origin, 12*i)
	default:
		return origin
	}
}

// addMonths advances a date by n calendar months, clamping the day to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29).
func addMonths(d civil.Date, n int) civil.Date {
	months := int(d.Month) - 1 + n
	year := d.Year + months/12
	month := time.Month(months%12 + 1)

	day := d.Day
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// daysInMonth returns the number of days in the given month. Day 0 of the
// following month normalizes to the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// eventTitle labels an occurrence with the description and signed amount,
// e.g. "Rent (-350.00)" or "Salary (+2500.00)".
func eventTitle(tx *domain.Transaction) string {
	signed := tx.SignedAmount()
	prefix := ""
	if signed.IsPositive() {
		prefix = "+"
	}
	return fmt.Sprintf("%s (%s%s)", tx.Description, prefix, signed.StringFixed(2))
}

// Projector emits projected occurrences to the calendar collaborator.
type Projector struct {
	calendar calendar.Calendar
}

// NewProjector creates a projector writing to the given calendar.
func NewProjector(cal calendar.Calendar) *Projector {
	return &Projector{calendar: cal}
}

// Project computes the occurrences for tx and writes them to the calendar.
// The first event error aborts; already-written events are left in place,
// since emission is a best-effort secondary write and the calendar is
// reconciled through cascade-delete by origin.
func (p *Projector) Project(ctx context.Context, tx *domain.Transaction) error {
	events, err := Occurrences(tx)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := p.calendar.CreateEvent(ctx, ev); err != nil {
			return fmt.Errorf("projecting transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}
