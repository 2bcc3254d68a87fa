package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestIsPurchaseDay(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"weekday anchor", day(2026, time.August, 5), true},
		{"day after an anchor", day(2026, time.August, 6), false},
		{"ordinary day", day(2026, time.August, 12), false},
		{"tuesday anchor", day(2026, time.August, 25), true},

		// Aug 15, 2026 is a Saturday: the installment moves to Monday the 17th
		{"saturday anchor itself", day(2026, time.August, 15), false},
		{"sunday between anchor and shift", day(2026, time.August, 16), false},
		{"monday after saturday anchor", day(2026, time.August, 17), true},

		// Nov 15, 2026 is a Sunday: shifted one day forward
		{"sunday anchor itself", day(2026, time.November, 15), false},
		{"monday after sunday anchor", day(2026, time.November, 16), true},

		// Jul 25, 2026 is a Saturday
		{"saturday 25th", day(2026, time.July, 25), false},
		{"monday after saturday 25th", day(2026, time.July, 27), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPurchaseDay(tt.date))
		})
	}
}

func TestShiftToBusinessDay(t *testing.T) {
	// Saturday jumps two days, Sunday one, weekdays stay put
	assert.Equal(t, day(2026, time.August, 17).Day(), shiftToBusinessDay(day(2026, time.August, 15)).Day())
	assert.Equal(t, day(2026, time.November, 16).Day(), shiftToBusinessDay(day(2026, time.November, 15)).Day())
	assert.Equal(t, day(2026, time.August, 5).Day(), shiftToBusinessDay(day(2026, time.August, 5)).Day())
}
