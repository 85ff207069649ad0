package loan

import (
	"time"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	daysPerYear = 365

	// Contractual minimum billing spans. A loan settled inside the first
	// week is billed as 7 days; inside the first fortnight as 15.
	minChargeDaysShort = 7
	minChargeDaysLong  = 15

	// Spans up to this many days qualify for the early-settlement rebate.
	earlyRebateDays = 30

	earlyRebatePct = 0.02
)

// MinInterestCharge is the absolute interest floor in whole currency units.
var MinInterestCharge = decimal.NewFromInt(50)

// RoundMoney is the single rounding policy for derived amounts: half-up to
// the nearest whole currency unit. Every boundary that computes money goes
// through it so schedules and totals cannot drift apart over repeated
// re-pricings.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func wholeDaysBetween(from, to time.Time) int {
	days := int(truncateToDay(to).Sub(truncateToDay(from)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

type InterestBreakdown struct {
	TotalInterest     decimal.Decimal
	TotalAmount       decimal.Decimal
	MinInterestAmount decimal.Decimal
	EffectiveDays     int
	ActualDays        int
	Months            int

	MinDaysApplied     bool
	MinInterestApplied bool
}

// ComputeInterest prices a principal over [from, to] at a simple day-count
// rate of annualRatePct/100/365, subject to the minimum billing span and the
// absolute interest floor.
func ComputeInterest(principal decimal.Decimal, annualRatePct float64, from, to time.Time) (InterestBreakdown, error) {
	if !principal.IsPositive() {
		return InterestBreakdown{}, apperrors.NewValidationError("principal", "must be positive")
	}
	if annualRatePct <= 0 {
		return InterestBreakdown{}, apperrors.NewValidationError("annualRatePct", "must be positive")
	}
	if from.IsZero() || to.IsZero() {
		return InterestBreakdown{}, apperrors.NewValidationError("dates", "from and to are required")
	}

	actualDays := wholeDaysBetween(from, to)
	effectiveDays := actualDays
	minDaysApplied := false
	switch {
	case actualDays <= minChargeDaysShort:
		effectiveDays = minChargeDaysShort
		minDaysApplied = actualDays != minChargeDaysShort
	case actualDays <= minChargeDaysLong:
		effectiveDays = minChargeDaysLong
		minDaysApplied = actualDays != minChargeDaysLong
	}

	dailyRate := decimal.NewFromFloat(annualRatePct).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(daysPerYear))
	interest := RoundMoney(principal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(effectiveDays))))

	minInterestApplied := false
	if interest.LessThan(MinInterestCharge) {
		interest = MinInterestCharge
		minInterestApplied = true
	}

	months := (actualDays + 29) / 30
	if months < 1 {
		months = 1
	}

	return InterestBreakdown{
		TotalInterest:      interest,
		TotalAmount:        RoundMoney(principal.Add(interest)),
		MinInterestAmount:  MinInterestCharge,
		EffectiveDays:      effectiveDays,
		ActualDays:         actualDays,
		Months:             months,
		MinDaysApplied:     minDaysApplied,
		MinInterestApplied: minInterestApplied,
	}, nil
}

type EarlyRepayment struct {
	InterestBreakdown

	EffectiveDate      time.Time
	Rebate             decimal.Decimal
	TotalDue           decimal.Decimal
	GracePeriodApplied bool
	RebateApplied      bool
}

// ShiftToBusinessDay walks a date forward, one day at a time, until the
// calendar stops reporting a non-business day. Shifting an already-shifted
// date is a no-op, so grace-period math is idempotent.
func ShiftToBusinessDay(date time.Time, cal HolidayCalendar) (time.Time, bool) {
	shifted := truncateToDay(date)
	moved := false
	for cal.IsNonBusinessDay(shifted) {
		shifted = shifted.AddDate(0, 0, 1)
		moved = true
	}
	return shifted, moved
}

// ComputeEarlyRepayment prices a full settlement of the loan as of asOf.
// The settlement date is shifted off holidays and Sundays before interest is
// computed, and settlements within 30 days of disbursement earn a 2% rebate
// on accrued interest.
func ComputeEarlyRepayment(l *Loan, asOf time.Time, cal HolidayCalendar) (EarlyRepayment, error) {
	if asOf.IsZero() {
		return EarlyRepayment{}, apperrors.NewValidationError("asOf", "is required")
	}

	effectiveDate, shifted := ShiftToBusinessDay(asOf, cal)

	breakdown, err := ComputeInterest(l.Principal, l.CurrentInterestRate, l.DisbursementDate, effectiveDate)
	if err != nil {
		return EarlyRepayment{}, err
	}

	result := EarlyRepayment{
		InterestBreakdown:  breakdown,
		EffectiveDate:      effectiveDate,
		Rebate:             decimal.Zero,
		GracePeriodApplied: shifted,
	}

	if breakdown.ActualDays <= earlyRebateDays {
		rebate := RoundMoney(breakdown.TotalInterest.Mul(decimal.NewFromFloat(earlyRebatePct)))
		result.Rebate = rebate
		result.RebateApplied = true
		result.TotalInterest = breakdown.TotalInterest.Sub(rebate)
		result.TotalAmount = breakdown.TotalAmount.Sub(rebate)
	}

	result.TotalDue = result.TotalAmount
	return result, nil
}
