package bathing

import (
	"fmt"
	"sort"
)

// historyLength is how many trailing weeks feed the chart.
const historyLength = 5

// AvailableWeeks returns the weeks of ds holding a number, ascending.
func AvailableWeeks(ds WeeklyDataset) []int {
	weeks := make([]int, 0, len(ds))
	for week, rec := range ds {
		if rec.Available() {
			weeks = append(weeks, week)
		}
	}
	sort.Ints(weeks)
	return weeks
}

// Reconcile matches the current week against the sparse dataset. Selection order:
// the current week, the week before, the nearest earlier week, then the nearest
// later week. Anything other than an exact match is flagged through Match.
func Reconcile(ds WeeklyDataset, current WeekYear) ReconciliationResult {
	available := AvailableWeeks(ds)
	week, match := selectWeek(available, current.Week)

	rec, ok := ds[week]
	if match == MatchNone || !ok || !rec.Available() {
		return ReconciliationResult{
			Value:          nil,
			Error:          fmt.Sprintf("no value found for week %d\nthe source has no week with a measured value", current.Week),
			AvailableWeeks: available,
			SearchedWeek:   current.Week,
			Match:          MatchNone,
		}
	}

	value := *rec.Value.Number
	return ReconciliationResult{
		Value:          &value,
		AvailableWeeks: available,
		SearchedWeek:   current.Week,
		ActualWeek:     week,
		IsEstimate:     rec.Value.IsEstimate,
		RawValue:       rec.Raw,
		History:        buildHistory(ds, available, week),
		Match:          match,
	}
}

func selectWeek(available []int, current int) (int, MatchKind) {
	if len(available) == 0 {
		return current, MatchNone
	}

	var (
		past, future       int
		hasPast, hasFuture bool
	)
	for _, w := range available {
		switch {
		case w == current:
			return w, MatchExact
		case w < current:
			// Ascending order, so the last one seen is the nearest.
			past, hasPast = w, true
		case w > current && !hasFuture:
			future, hasFuture = w, true
		}
	}

	// The immediate predecessor is the nearest past week whenever it exists.
	if hasPast {
		return past, MatchPast
	}
	if hasFuture {
		return future, MatchFuture
	}
	return current, MatchNone
}

func buildHistory(ds WeeklyDataset, available []int, actual int) []HistoryPoint {
	upTo := sort.SearchInts(available, actual+1)
	start := upTo - historyLength
	if start < 0 {
		start = 0
	}

	history := make([]HistoryPoint, 0, upTo-start)
	for _, w := range available[start:upTo] {
		rec := ds[w]
		if !rec.Available() {
			continue
		}
		history = append(history, HistoryPoint{Week: w, Value: *rec.Value.Number})
	}
	return history
}
