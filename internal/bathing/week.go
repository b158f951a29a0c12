package bathing

import "time"

// WeekOf returns the ISO-8601 week of t's calendar date. Week 1 is the week holding
// the year's first Thursday, so late December can belong to the next year and early
// January to the previous one.
func WeekOf(t time.Time) WeekYear {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	isoWeekday := int(d.Weekday())
	if isoWeekday == 0 {
		isoWeekday = 7
	}
	thursday := d.AddDate(0, 0, 4-isoWeekday)

	// YearDay is 1-based, so this is ceil((daysSinceJan1 + 1) / 7).
	week := (thursday.YearDay() + 6) / 7
	return WeekYear{Week: week, Year: thursday.Year()}
}
