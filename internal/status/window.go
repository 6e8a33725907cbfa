package status

import (
	"errors"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// ErrInvalidDateFormat is returned when a boundary timestamp does not parse.
var ErrInvalidDateFormat = errors.New("status: invalid date format, use YYYY-MM-DD HH:MM:SS")

// ErrInvalidRange is returned when the window start is after its end.
var ErrInvalidRange = errors.New("status: start date must be before end date")

// Window is an inclusive creation-time window.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow parses both boundaries from "YYYY-MM-DD HH:MM:SS" in loc
// (nil means local time, which is what operators type into the form).
func ParseWindow(start, end string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	if start == "" || end == "" {
		return Window{}, ErrInvalidDateFormat
	}
	startAt, err := time.ParseInLocation(timeFormat, start, loc)
	if err != nil {
		return Window{}, ErrInvalidDateFormat
	}
	endAt, err := time.ParseInLocation(timeFormat, end, loc)
	if err != nil {
		return Window{}, ErrInvalidDateFormat
	}
	if startAt.After(endAt) {
		return Window{}, ErrInvalidRange
	}
	return Window{Start: startAt, End: endAt}, nil
}

// StartEpoch is the window start in epoch seconds.
func (w Window) StartEpoch() int64 { return w.Start.Unix() }

// EndEpoch is the window end in epoch seconds.
func (w Window) EndEpoch() int64 { return w.End.Unix() }
