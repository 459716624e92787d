package chrono

import (
	"time"
)

// IST is the timezone the screener's market runs in.
const IST = "Asia/Kolkata"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the configured market timezone.
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime is the constructor of StandardTime, `timezone` is an IANA
// timezone name, an empty string defaults to IST.
func NewStandardTime(timezone string) (StandardTime, error) {
	if timezone == "" {
		timezone = IST
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: location}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}
