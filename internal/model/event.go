package model

import "time"

// Kinds of event occurrences.
const (
	KindCourse = "course"
	KindEvent  = "event"
)

// Event is a single dated occurrence of a course or a one-off studio event.
// Date carries only the calendar day (midnight UTC as scanned from DATE).
type Event struct {
	ID           uint64
	Date         time.Time
	TimeLabel    string
	TitleEN      string
	TitleDE      string
	CoursePath   *string
	ExternalLink *string
	Kind         string
	CreatedAt    time.Time
}

// Title returns the title in lang, falling back to English.
func (e Event) Title(lang string) string {
	if lang == "de" && e.TitleDE != "" {
		return e.TitleDE
	}
	return e.TitleEN
}

// Day returns the occurrence date formatted as YYYY-MM-DD.
func (e Event) Day() string { return e.Date.Format("2006-01-02") }

// StartsAt is midnight of the occurrence date in loc.
func (e Event) StartsAt(loc *time.Location) time.Time {
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsCourse reports whether the event belongs to coursePath.
func (e Event) IsCourse(coursePath string) bool {
	return e.Kind == KindCourse && e.CoursePath != nil && *e.CoursePath == coursePath
}
