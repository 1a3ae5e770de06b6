package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntervalType is the unit of a recurring transaction's cadence.
type IntervalType string

const (
	IntervalDaily   IntervalType = "daily"
	IntervalWeekly  IntervalType = "weekly"
	IntervalMonthly IntervalType = "monthly"
)

// IsValid reports whether it is a supported interval unit.
func (it IntervalType) IsValid() bool {
	switch it {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// RecurringTransaction is a standing instruction to materialize a
// Transaction on a schedule. The sweep advances NextExecutionDate after
// each successful run, so it always points into the future relative to
// the last execution.
type RecurringTransaction struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	CardID            uuid.UUID       `json:"card_id"`
	RecipientID       uuid.UUID       `json:"recipient_id"`
	CategoryID        uuid.UUID       `json:"category_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          Currency        `json:"currency"`
	Interval          int             `json:"interval"`
	IntervalType      IntervalType    `json:"interval_type"`
	NextExecutionDate time.Time       `json:"next_execution_date"`
}

// NextExecution returns the execution date following the current one.
//
// Daily and weekly advance by a fixed duration. Monthly advances to the
// same day-of-month in the next calendar month, clamped to that month's
// last valid day (Jan 31 -> Feb 28/29, never Mar 2/3).
func (r *RecurringTransaction) NextExecution() time.Time {
	cur := r.NextExecutionDate
	switch r.IntervalType {
	case IntervalDaily:
		return cur.AddDate(0, 0, 1)
	case IntervalWeekly:
		return cur.AddDate(0, 0, 7)
	case IntervalMonthly:
		month := int(cur.Month())
		nextMonth := month%12 + 1
		nextYear := cur.Year() + month/12
		day := cur.Day()
		if last := daysInMonth(nextYear, time.Month(nextMonth)); day > last {
			day = last
		}
		return time.Date(nextYear, time.Month(nextMonth), day,
			cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), cur.Location())
	}
	return cur
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
