package billing

import "time"

// AnchorSchedule is the billing anchor derived from a tenant's creation date
// together with the next invoice due date.
type AnchorSchedule struct {
	AnchorDay     int       `json:"anchor_day"`
	AnchorMonth   int       `json:"anchor_month"`
	NextInvoiceAt time.Time `json:"next_invoice_at"`
}

// ComputeNextInvoiceDate returns the anchor of createdAt and the first due date strictly after now.
//
// Monthly: the anchor day in the month following now's month.
// Annual: the anchor month and day in now's year, or the following year if that date is not after now.
// Anchor days the target month does not have are clamped to its last day, so anchor day 31 falls
// on Feb 28 (29 in leap years). The result is at midnight in createdAt's location.
func ComputeNextInvoiceDate(createdAt time.Time, frequency Frequency, now time.Time) (AnchorSchedule, error) {
	loc := createdAt.Location()
	schedule := AnchorSchedule{
		AnchorDay:   createdAt.Day(),
		AnchorMonth: int(createdAt.Month()),
	}
	local := now.In(loc)

	switch frequency {
	case FrequencyMonthly:
		// Day 1 keeps time.Date from overflowing into the month after the target
		target := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc)
		schedule.NextInvoiceAt = anchorDate(target.Year(), target.Month(), schedule.AnchorDay, loc)
	case FrequencyAnnual:
		month := time.Month(schedule.AnchorMonth)
		next := anchorDate(local.Year(), month, schedule.AnchorDay, loc)
		if !next.After(now) {
			next = anchorDate(local.Year()+1, month, schedule.AnchorDay, loc)
		}
		schedule.NextInvoiceAt = next
	default:
		return AnchorSchedule{}, ErrInvalidFrequency.Withf("Invalid billing frequency %q", frequency)
	}
	return schedule, nil
}

// anchorDate returns midnight of day in the given month, clamped to the month's last day
func anchorDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
