package bathing

import (
	"fmt"
	"math"
	"strings"
)

// DefaultThresholdHigh is the CFU/100ml level from which bathing is discouraged.
const DefaultThresholdHigh = 1000.0

// Status is the bathing recommendation derived from a bacteria count.
type Status string

const (
	StatusRecommended    Status = "recommended"
	StatusNotRecommended Status = "not_recommended"
)

// Classify compares value against the high threshold.
func Classify(value, threshold float64) Status {
	if value >= threshold {
		return StatusNotRecommended
	}
	return StatusRecommended
}

// BacteriaView is what presentation needs to draw the bacteria panel.
type BacteriaView struct {
	Value        float64        `json:"value"`
	Status       Status         `json:"status"`
	Week         int            `json:"week"`
	SearchedWeek int            `json:"searchedWeek"`
	Year         int            `json:"year"`
	Shifted      bool           `json:"shifted"`
	Match        MatchKind      `json:"match"`
	WeekInfo     string         `json:"weekInfo"`
	IsEstimate   bool           `json:"isEstimate"`
	History      []HistoryPoint `json:"history"`
}

// NewBacteriaView builds the panel for a result that carries a value.
func NewBacteriaView(res ReconciliationResult, current WeekYear, threshold float64) BacteriaView {
	var value float64
	if res.Value != nil {
		value = *res.Value
	}

	week := current.Week
	if res.ActualWeek != 0 {
		week = res.ActualWeek
	}
	shifted := res.ActualWeek != 0 && res.ActualWeek != current.Week

	info := fmt.Sprintf("week %d, %d", week, current.Year)
	if shifted {
		info = fmt.Sprintf("week %d (searched week %d), %d", week, current.Week, current.Year)
	}
	if res.IsEstimate && res.RawValue != "" {
		info += fmt.Sprintf(", estimated value (%s)", strings.TrimSpace(res.RawValue))
	}

	history := res.History
	if history == nil {
		history = []HistoryPoint{}
	}

	return BacteriaView{
		Value:        math.Round(value),
		Status:       Classify(value, threshold),
		Week:         week,
		SearchedWeek: current.Week,
		Year:         current.Year,
		Shifted:      shifted,
		Match:        res.Match,
		WeekInfo:     info,
		IsEstimate:   res.IsEstimate,
		History:      history,
	}
}

// MissingValueMessage explains a result without a value.
func MissingValueMessage(res ReconciliationResult, current WeekYear) string {
	if res.Error != "" {
		return res.Error
	}
	return fmt.Sprintf("could not find a value for the current week. Check that the data has values for week %d.", current.Week)
}

// MessageLines splits a possibly multi-line message into display lines.
func MessageLines(msg string) []string {
	lines := strings.Split(strings.ReplaceAll(msg, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// RoundCelsius rounds a temperature for display.
func RoundCelsius(c float64) int {
	return int(math.Round(c))
}
