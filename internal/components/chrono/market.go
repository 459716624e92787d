package chrono

import (
	"fmt"
	"time"
)

// Gate decides if a batch is allowed to run at the given time.
type Gate interface {
	IsOpen(t time.Time) bool
}

// AlwaysOpen is a Gate that never closes.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool {
	return true
}

// Clock is a time of day, in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" (24 hour).
func ParseClock(text string) (Clock, error) {
	t, err := time.Parse("15:04", text)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", text, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

type MarketCalendarOptions struct {
	Location *time.Location
	// Open and Close are "HH:MM" in Location, both inclusive.
	Open  string
	Close string
	// Holidays are "YYYY-MM-DD" dates in Location the market is closed on.
	Holidays []string
}

// MarketCalendar is a Gate that is open on weekdays between the opening and
// closing bell, except for holidays.
type MarketCalendar struct {
	location *time.Location
	opens    Clock
	closes   Clock
	holidays map[string]struct{}
}

func NewMarketCalendar(opts MarketCalendarOptions) (MarketCalendar, error) {
	if opts.Location == nil {
		return MarketCalendar{}, fmt.Errorf("market calendar: location is required")
	}
	opens, err := ParseClock(opts.Open)
	if err != nil {
		return MarketCalendar{}, err
	}
	closes, err := ParseClock(opts.Close)
	if err != nil {
		return MarketCalendar{}, err
	}
	if closes <= opens {
		return MarketCalendar{}, fmt.Errorf("market calendar: close %s is not after open %s", closes, opens)
	}

	holidays := make(map[string]struct{}, len(opts.Holidays))
	for _, h := range opts.Holidays {
		date, err := time.ParseInLocation(time.DateOnly, h, opts.Location)
		if err != nil {
			return MarketCalendar{}, fmt.Errorf("market calendar: parse holiday: %w", err)
		}
		holidays[date.Format(time.DateOnly)] = struct{}{}
	}

	return MarketCalendar{
		location: opts.Location,
		opens:    opens,
		closes:   closes,
		holidays: holidays,
	}, nil
}

func (m MarketCalendar) IsOpen(t time.Time) bool {
	local := t.In(m.location)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if _, holiday := m.holidays[local.Format(time.DateOnly)]; holiday {
		return false
	}

	now := Clock(local.Hour()*60 + local.Minute())
	return now >= m.opens && now <= m.closes
}
