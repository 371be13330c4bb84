// Package refresh reloads record categories on a bounded worker pool and
// streams progress to caller-supplied sinks.
package refresh

import (
	"fmt"
	"strings"
)

// Category names a reloadable slice of the records.
type Category string

const (
	Students    Category = "students"
	Staff       Category = "staff"
	Courses     Category = "courses"
	Modules     Category = "modules"
	Assignments Category = "assignments"

	// All is the meta category covering every other one.
	All Category = "all"
)

// Categories lists every concrete category in reporting order.
func Categories() []Category {
	return []Category{Students, Staff, Courses, Modules, Assignments}
}

// ParseCategory accepts a category name in any case.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if c == All {
		return All, nil
	}
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
}

func (c Category) String() string { return string(c) }
