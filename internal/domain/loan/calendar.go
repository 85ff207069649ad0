package loan

import "time"

// Clock is injected into the service so grace-period and upgrade-horizon
// math stays reproducible under test.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// HolidayCalendar answers whether repayment counters may land on a date.
type HolidayCalendar interface {
	IsNonBusinessDay(date time.Time) bool
}

// FixedHolidayCalendar treats Sundays plus a configured list of dates as
// non-business days.
type FixedHolidayCalendar struct {
	holidays map[string]struct{}
}

const holidayDateLayout = "2006-01-02"

func NewFixedHolidayCalendar(dates []string) (*FixedHolidayCalendar, error) {
	holidays := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		parsed, err := time.Parse(holidayDateLayout, d)
		if err != nil {
			return nil, err
		}
		holidays[parsed.Format(holidayDateLayout)] = struct{}{}
	}
	return &FixedHolidayCalendar{holidays: holidays}, nil
}

func (c *FixedHolidayCalendar) IsNonBusinessDay(date time.Time) bool {
	if date.Weekday() == time.Sunday {
		return true
	}
	_, ok := c.holidays[date.Format(holidayDateLayout)]
	return ok
}
