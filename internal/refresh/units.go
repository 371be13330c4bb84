package refresh

import (
	"context"

	"github.com/kingrea/unirecords/internal/assignment"
	"github.com/kingrea/unirecords/internal/catalog"
)

// Unit reloads one category. It runs on a worker goroutine and should honour
// ctx between file operations.
type Unit func(ctx context.Context) error

// DefaultUnits reloads every category from the catalog and the two assignment
// repositories into view.
func DefaultUnits(c *catalog.Catalog, staff, students *assignment.Repository, view *View) map[Category]Unit {
	return map[Category]Unit{
		Students: func(ctx context.Context) error {
			list, err := c.Students.All()
			if err != nil {
				return err
			}
			return view.set(ctx, Students, func() { view.students = list })
		},
		Staff: func(ctx context.Context) error {
			list, err := c.Staff.All()
			if err != nil {
				return err
			}
			return view.set(ctx, Staff, func() { view.staff = list })
		},
		Courses: func(ctx context.Context) error {
			list, err := c.Courses.All()
			if err != nil {
				return err
			}
			return view.set(ctx, Courses, func() { view.courses = list })
		},
		Modules: func(ctx context.Context) error {
			list, err := c.Modules.All()
			if err != nil {
				return err
			}
			return view.set(ctx, Modules, func() { view.modules = list })
		},
		Assignments: func(ctx context.Context) error {
			staffStore, err := staff.Load(ctx)
			if err != nil {
				return err
			}
			studentStore, err := students.Load(ctx)
			if err != nil {
				return err
			}
			return view.set(ctx, Assignments, func() {
				view.staffAssignments = staffStore
				view.studentAssignments = studentStore
			})
		},
	}
}
