package bathing

// WeekValue is one week's bacteria count. A nil Number means the week has no measurement.
type WeekValue struct {
	Number     *float64 `json:"number"`
	IsEstimate bool     `json:"isEstimate"`
}

// WeeklyRecord is one week's observation or estimate as published upstream.
type WeeklyRecord struct {
	Week  int       `json:"week,omitempty"`
	Value WeekValue `json:"value"`
	Raw   string    `json:"raw"`
}

// Available reports whether the record carries a usable number.
func (r WeeklyRecord) Available() bool {
	return r.Value.Number != nil
}

// WeeklyDataset maps ISO week numbers to records. It is sparse.
type WeeklyDataset map[int]WeeklyRecord

// WeekYear identifies an ISO-8601 week.
type WeekYear struct {
	Week int `json:"week"`
	Year int `json:"year"`
}

// MatchKind records which selection rule picked the shown week.
type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchPast   MatchKind = "past"
	MatchFuture MatchKind = "future"
	MatchNone   MatchKind = "none"
)

// HistoryPoint is one entry of the trailing chart history.
type HistoryPoint struct {
	Week  int     `json:"week"`
	Value float64 `json:"value"`
}

// ReconciliationResult is the outcome of matching today's week against a dataset.
// A nil Value means no usable week was found; Error then explains why.
type ReconciliationResult struct {
	Value          *float64       `json:"value"`
	Error          string         `json:"error,omitempty"`
	AvailableWeeks []int          `json:"availableWeeks"`
	SearchedWeek   int            `json:"searchedWeek"`
	ActualWeek     int            `json:"actualWeek,omitempty"`
	IsEstimate     bool           `json:"isEstimate,omitempty"`
	RawValue       string         `json:"rawValue,omitempty"`
	History        []HistoryPoint `json:"history,omitempty"`
	Match          MatchKind      `json:"match"`
}
