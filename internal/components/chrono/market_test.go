package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:15")
	require.NoError(t, err)
	require.Equal(t, Clock(9*60+15), c)
	require.Equal(t, "09:15", c.String())

	_, err = ParseClock("9am")
	require.Error(t, err)
}

func TestMarketCalendar(t *testing.T) {
	ist, err := time.LoadLocation(IST)
	require.NoError(t, err)

	calendar, err := NewMarketCalendar(MarketCalendarOptions{
		Location: ist,
		Open:     "09:15",
		Close:    "15:30",
		Holidays: []string{"2024-10-02"},
	})
	require.NoError(t, err)

	cases := []struct {
		name     string
		time     time.Time
		expected bool
	}{
		{"before open", time.Date(2024, time.October, 1, 9, 14, 0, 0, ist), false},
		{"at open", time.Date(2024, time.October, 1, 9, 15, 0, 0, ist), true},
		{"midday", time.Date(2024, time.October, 1, 12, 0, 0, 0, ist), true},
		{"at close", time.Date(2024, time.October, 1, 15, 30, 59, 0, ist), true},
		{"after close", time.Date(2024, time.October, 1, 15, 31, 0, 0, ist), false},
		{"holiday", time.Date(2024, time.October, 2, 12, 0, 0, 0, ist), false},
		{"saturday", time.Date(2024, time.October, 5, 12, 0, 0, 0, ist), false},
		{"sunday", time.Date(2024, time.October, 6, 12, 0, 0, 0, ist), false},
		// 06:30 UTC is 12:00 IST
		{"other timezone", time.Date(2024, time.October, 1, 6, 30, 0, 0, time.UTC), true},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, calendar.IsOpen(test.time))
		})
	}
}

func TestMarketCalendarInvalid(t *testing.T) {
	ist, err := time.LoadLocation(IST)
	require.NoError(t, err)

	_, err = NewMarketCalendar(MarketCalendarOptions{Location: ist, Open: "15:30", Close: "09:15"})
	require.Error(t, err)
	_, err = NewMarketCalendar(MarketCalendarOptions{Location: ist, Open: "09:15", Close: "15:30", Holidays: []string{"02/10/2024"}})
	require.Error(t, err)
	_, err = NewMarketCalendar(MarketCalendarOptions{Open: "09:15", Close: "15:30"})
	require.Error(t, err)
}

func TestAlwaysOpen(t *testing.T) {
	require.True(t, AlwaysOpen{}.IsOpen(time.Date(2024, time.October, 6, 3, 0, 0, 0, time.UTC)))
}
