package loan

import (
	"testing"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_MonthlyDueDates(t *testing.T) {
	schedule, err := BuildSchedule(date(2024, 1, 31), 3, decimal.NewFromInt(1000))

	require.NoError(t, err)
	require.Len(t, schedule, 3)
	// AddDate normalizes month-end overflow the Go way.
	assert.Equal(t, date(2024, 3, 2), schedule[0].DueDate)
	assert.Equal(t, date(2024, 3, 31), schedule[1].DueDate)
	assert.Equal(t, date(2024, 5, 1), schedule[2].DueDate)
	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, InstallmentPending, inst.Status)
	}
}

func TestBuildSchedule_Validation(t *testing.T) {
	_, err := BuildSchedule(date(2024, 1, 1), 0, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = BuildSchedule(date(2024, 1, 1), 3, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
