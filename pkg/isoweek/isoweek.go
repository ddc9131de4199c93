// Package isoweek does ISO 8601 week arithmetic. Weeks start on Monday and
// week 1 is the week containing January 4th.
package isoweek

import "time"

// Week identifies an ISO week
type Week struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// Of returns the ISO week containing t (evaluated in UTC)
func Of(t time.Time) Week {
	y, w := t.UTC().ISOWeek()
	return Week{Year: y, Week: w}
}

// Monday returns midnight UTC on the Monday starting the week
func (w Week) Monday() time.Time {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (w.Week-1)*7)
}

// Bounds returns Monday and Sunday of the week
func (w Week) Bounds() (time.Time, time.Time) {
	mon := w.Monday()
	return mon, mon.AddDate(0, 0, 6)
}

// BusinessBounds returns Monday and Friday of the week
func (w Week) BusinessBounds() (time.Time, time.Time) {
	mon := w.Monday()
	return mon, mon.AddDate(0, 0, 4)
}

// Previous returns the week before w
func (w Week) Previous() Week {
	return Of(w.Monday().AddDate(0, 0, -7))
}

// Valid reports whether the week number exists in its year
func (w Week) Valid() bool {
	if w.Week < 1 || w.Week > 53 {
		return false
	}
	return Of(w.Monday()) == w
}

// IsWeekEnd reports whether t falls on Sunday, the last day of an ISO week
func IsWeekEnd(t time.Time) bool {
	return t.UTC().Weekday() == time.Sunday
}

// IsBusinessDay reports whether t falls Monday through Friday
func IsBusinessDay(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
