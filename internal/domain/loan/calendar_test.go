package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedHolidayCalendar(t *testing.T) {
	cal, err := NewFixedHolidayCalendar([]string{"2024-12-25"})
	require.NoError(t, err)

	assert.True(t, cal.IsNonBusinessDay(date(2024, 1, 7)), "Sundays are never business days")
	assert.True(t, cal.IsNonBusinessDay(date(2024, 12, 25)), "listed holidays")
	assert.False(t, cal.IsNonBusinessDay(date(2024, 1, 8)), "ordinary Monday")
}

func TestNewFixedHolidayCalendar_RejectsBadDate(t *testing.T) {
	_, err := NewFixedHolidayCalendar([]string{"25-12-2024"})
	assert.Error(t, err)
}
