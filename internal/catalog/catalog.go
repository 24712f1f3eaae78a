// Package catalog holds the fixed course table of the studio.  Courses are
// grouped by sense ("planets"); each course ("moon") has a normalized path,
// the display key that names its credit balance, and bilingual titles.
package catalog

import (
	"sort"
	"strings"
)

// Title is a bilingual label.
type Title struct {
	EN string `json:"en"`
	DE string `json:"de"`
}

// In returns the label for lang, defaulting to English.
func (t Title) In(lang string) string {
	if lang == "de" && t.DE != "" {
		return t.DE
	}
	return t.EN
}

// Course is one entry of the course table.
type Course struct {
	Path       string   `json:"path"`
	DisplayKey string   `json:"displayKey"`
	Title      Title    `json:"title"`
	Senses     []string `json:"senses"`
}

// Planet groups the courses that address one sense.
type Planet struct {
	Sense   string   `json:"sense"`
	Title   Title    `json:"title"`
	Courses []Course `json:"courses"`
}

// Catalog is built once at startup and is read-only afterwards.
type Catalog struct {
	byPath  map[string]Course
	courses []Course
	planets []Planet
}

// New indexes courses by normalized path.  Later duplicates win.
func New(senses map[string]Title, courses []Course) *Catalog {
	c := &Catalog{byPath: make(map[string]Course, len(courses))}
	for _, course := range courses {
		course.Path = Normalize(course.Path)
		if course.DisplayKey == "" {
			course.DisplayKey = stripSlashes(course.Path)
		}
		if _, seen := c.byPath[course.Path]; !seen {
			c.courses = append(c.courses, course)
		}
		c.byPath[course.Path] = course
	}
	for i, course := range c.courses {
		c.courses[i] = c.byPath[course.Path]
	}

	grouped := map[string][]Course{}
	for _, course := range c.courses {
		for _, s := range course.Senses {
			grouped[s] = append(grouped[s], course)
		}
	}
	keys := make([]string, 0, len(grouped))
	for s := range grouped {
		keys = append(keys, s)
	}
	sort.Strings(keys)
	for _, s := range keys {
		title, ok := senses[s]
		if !ok {
			title = Title{EN: s, DE: s}
		}
		c.planets = append(c.planets, Planet{Sense: s, Title: title, Courses: grouped[s]})
	}
	return c
}

// Normalize trims spaces, lower-cases, forces a single leading slash and
// drops trailing slashes.  An empty input stays empty.
func Normalize(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func stripSlashes(path string) string {
	return strings.ReplaceAll(path, "/", "")
}

// Lookup returns the course registered for path.
func (c *Catalog) Lookup(path string) (Course, bool) {
	course, ok := c.byPath[Normalize(path)]
	return course, ok
}

// DisplayKey maps a course path to the key of its credit balance.  Paths not
// in the table fall back to the normalized path with every slash removed.
func (c *Catalog) DisplayKey(path string) string {
	if course, ok := c.Lookup(path); ok {
		return course.DisplayKey
	}
	return stripSlashes(Normalize(path))
}

// CourseTitle returns the course title in lang, or the display key for
// unknown paths.
func (c *Catalog) CourseTitle(path, lang string) string {
	if course, ok := c.Lookup(path); ok {
		return course.Title.In(lang)
	}
	return c.DisplayKey(path)
}

// Courses lists the table in declaration order.
func (c *Catalog) Courses() []Course { return c.courses }

// Planets lists sense groups ordered by sense name.
func (c *Catalog) Planets() []Planet { return c.planets }
