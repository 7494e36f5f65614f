package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2026, 5, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"default is today", "", "", "", time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"yesterday", "yesterday", "", "", time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)},
		{"week is last seven days", "week", "", "", time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"month", "MONTH", "", "", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"quarter", "quarter", "", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"year", "year", "", "", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"custom end is inclusive", "custom", "2026-02-01", "2026-02-28", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolvePeriod(tt.period, tt.from, tt.to, now, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(r.Start), "start %s", r.Start)
			assert.True(t, tt.wantEnd.Equal(r.End), "end %s", r.End)
		})
	}
}

func TestResolvePeriod_Errors(t *testing.T) {
	now := time.Now()
	for _, tc := range []struct{ period, from, to string }{
		{"fortnight", "", ""},
		{"custom", "bad", "2026-01-01"},
		{"custom", "2026-01-10", "2026-01-01"},
		{"custom", "2024-01-01", "2026-01-01"},
	} {
		_, err := ResolvePeriod(tc.period, tc.from, tc.to, now, time.UTC)
		require.Error(t, err)
		var de *DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_PERIOD", de.Code)
	}
}

func TestDateRange(t *testing.T) {
	r := DayRange(time.Date(2026, 3, 3, 23, 59, 0, 0, time.UTC), time.UTC)
	assert.True(t, r.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, r.Days())
}

func TestDomainError_IsByCode(t *testing.T) {
	custom := NewDomainError("NOT_FOUND", "product not found")
	assert.ErrorIs(t, custom, ErrNotFound)
	assert.NotErrorIs(t, custom, ErrAlreadyExists)
	assert.True(t, IsDomainError(custom))
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 20, DefaultFilter().PageSize)
	f := DefaultFilter().With("status", "active")
	assert.Equal(t, "active", f.Filters["status"])
	assert.Equal(t, 20, Filter{Page: 2, PageSize: 20}.Offset())
}
