package providers

import (
	"errors"
	"strconv"
)

var (
	// ErrNoWeeks is returned when the bacteria worker answers without any week data.
	ErrNoWeeks = errors.New("no week data in bacteria response")
	// ErrNoReading is returned when a payload has no temperature where one was expected.
	ErrNoReading = errors.New("no temperature in response")
)

// Site is the bathing site the sources are queried for.
type Site struct {
	Lat float64
	Lon float64
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
