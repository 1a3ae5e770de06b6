package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_IsValid(t *testing.T) {
	for _, c := range Currencies() {
		assert.True(t, c.IsValid(), string(c))
	}
	assert.False(t, Currency("JPY").IsValid())
	assert.False(t, Currency("usd").IsValid(), "currency codes are uppercase")
	assert.False(t, Currency("").IsValid())
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("BTC")
	require.NoError(t, err)
	assert.Equal(t, CurrencyBTC, c)

	_, err = ParseCurrency("DOGE")
	assert.Error(t, err)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAwaiting.IsTerminal())
	assert.True(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusDeclined.IsTerminal())
}

func TestWallet_CanCover(t *testing.T) {
	w := &Wallet{Balance: decimal.NewFromInt(100)}

	assert.True(t, w.CanCover(decimal.NewFromInt(100)))
	assert.True(t, w.CanCover(decimal.NewFromFloat(99.99)))
	assert.False(t, w.CanCover(decimal.NewFromFloat(100.01)))
}

func TestRecurring_NextExecution_Daily(t *testing.T) {
	r := &RecurringTransaction{
		IntervalType:      IntervalDaily,
		NextExecutionDate: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC), r.NextExecution())
}

func TestRecurring_NextExecution_Weekly(t *testing.T) {
	r := &RecurringTransaction{
		IntervalType:      IntervalWeekly,
		NextExecutionDate: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	// Crosses the year boundary.
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), r.NextExecution())
}

func TestRecurring_NextExecution_MonthlyClamped(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "Jan 31 clamps to Feb 29 in a leap year",
			from: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Jan 31 clamps to Feb 28 in a non-leap year",
			from: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Oct 31 clamps to Nov 30",
			from: time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "mid-month day is preserved",
			from: time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "December rolls into January of the next year",
			from: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RecurringTransaction{
				IntervalType:      IntervalMonthly,
				NextExecutionDate: tt.from,
			}
			assert.Equal(t, tt.want, r.NextExecution())
		})
	}
}

func TestRecurring_NextExecution_ClampDoesNotStick(t *testing.T) {
	// After clamping Jan 31 -> Feb 29, the following advance lands on
	// Mar 29 (the stored day is the clamped one, matching the source
	// of truth: the persisted next_execution_date).
	r := &RecurringTransaction{
		IntervalType:      IntervalMonthly,
		NextExecutionDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), r.NextExecution())
}
