package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/pottery":     "/pottery",
		" /Pottery/ ":  "/pottery",
		"pottery":      "/pottery",
		"//pottery//":  "/pottery",
		"":             "",
		"/":            "",
		"/a/b/":        "/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestDisplayKeyFromTable(t *testing.T) {
	c := Default()
	assert.Equal(t, "pottery tuesdays", c.DisplayKey("/pottery"))
	assert.Equal(t, "pottery tuesdays", c.DisplayKey("POTTERY/"))
}

func TestDisplayKeyFallbackStripsSlashes(t *testing.T) {
	c := New(nil, nil)
	assert.Equal(t, "open-studio", c.DisplayKey("/open-studio/"))
	assert.Equal(t, "kidsclay", c.DisplayKey("/kids/clay"))
}

func TestPlanetsGroupBySense(t *testing.T) {
	c := Default()
	planets := c.Planets()
	require.NotEmpty(t, planets)

	var touch *Planet
	for i := range planets {
		if planets[i].Sense == SenseTouch {
			touch = &planets[i]
		}
	}
	require.NotNil(t, touch)
	assert.Equal(t, "Tasten", touch.Title.In("de"))

	paths := make([]string, 0, len(touch.Courses))
	for _, course := range touch.Courses {
		paths = append(paths, course.Path)
	}
	assert.Contains(t, paths, "/pottery")
	assert.Contains(t, paths, "/open-studio")
}

func TestCourseTitle(t *testing.T) {
	c := Default()
	assert.Equal(t, "Töpfern am Dienstag", c.CourseTitle("/pottery", "de"))
	assert.Equal(t, "Pottery Tuesdays", c.CourseTitle("/pottery", "fr"))
	assert.Equal(t, "unknown", c.CourseTitle("/unknown", "en"))
}
