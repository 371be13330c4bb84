package assignment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/kingrea/unirecords/internal/catalog"
)

// Plan is the outcome of a policy: the module ids for every known owner, plus
// the owners that ended up empty because of a lookup failure.
type Plan struct {
	Modules map[int][]string
	Skipped []*GenerationError
	// NoOwners is set when the owner file does not exist. The plan is empty.
	NoOwners error
}

// Policy decides the initial assignments for one owner kind.
type Policy interface {
	Plan(ctx context.Context) (Plan, error)
}

// StaffSource lists staff members.
type StaffSource interface {
	All() ([]catalog.Staff, error)
}

// StudentSource lists students.
type StudentSource interface {
	All() ([]catalog.Student, error)
}

// CourseSource answers course lookups.
type CourseSource interface {
	ByDepartment(department string) ([]catalog.Course, error)
	CodeForTitle(title string) (string, bool, error)
}

// ModuleSource lists the modules of a course.
type ModuleSource interface {
	ForCourse(courseCode string) ([]catalog.Module, error)
}

// StaffPolicy gives each staff member up to their capacity of modules drawn from
// every course run by their department.
type StaffPolicy struct {
	Staff    StaffSource
	Courses  CourseSource
	Modules  ModuleSource
	Selector Selector
	// DefaultMaxModules applies to staff records without their own capacity.
	DefaultMaxModules int
}

// Plan implements Policy.
func (p *StaffPolicy) Plan(ctx context.Context) (Plan, error) {
	staff, err := p.Staff.All()
	if errors.Is(err, fs.ErrNotExist) {
		return Plan{Modules: map[int][]string{}, NoOwners: err}, nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("assignment: list staff: %w", err)
	}
	selector := p.Selector
	if selector == nil {
		selector = FirstN{}
	}
	plan := Plan{Modules: make(map[int][]string, len(staff))}
	for _, member := range staff {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		plan.Modules[member.ID] = []string{}
		candidates, genErr := p.departmentModules(member)
		if genErr != nil {
			plan.Skipped = append(plan.Skipped, genErr)
			continue
		}
		limit := member.MaxModules
		if limit <= 0 {
			limit = p.DefaultMaxModules
		}
		plan.Modules[member.ID] = selector.Select(candidates, limit)
	}
	return plan, nil
}

func (p *StaffPolicy) departmentModules(member catalog.Staff) ([]string, *GenerationError) {
	fail := func(reason string, err error) *GenerationError {
		return &GenerationError{Kind: KindStaff, OwnerID: member.ID, Reason: reason, Err: err}
	}
	if member.Department == "" {
		return nil, fail("no department", nil)
	}
	courses, err := p.Courses.ByDepartment(member.Department)
	if err != nil {
		return nil, fail("load courses", err)
	}
	if len(courses) == 0 {
		return nil, fail(fmt.Sprintf("no courses for department %q", member.Department), nil)
	}
	seen := map[string]struct{}{}
	var codes []string
	for _, course := range courses {
		modules, err := p.Modules.ForCourse(course.Code)
		if err != nil {
			return nil, fail("load modules for "+course.Code, err)
		}
		for _, mod := range modules {
			if _, dup := seen[mod.Code]; dup {
				continue
			}
			seen[mod.Code] = struct{}{}
			codes = append(codes, mod.Code)
		}
	}
	if len(codes) == 0 {
		return nil, fail(fmt.Sprintf("no modules for department %q", member.Department), nil)
	}
	sort.Strings(codes)
	return codes, nil
}

// StudentPolicy gives each student every module of their course.
type StudentPolicy struct {
	Students StudentSource
	Courses  CourseSource
	Modules  ModuleSource
	Selector Selector
	// MaxModules caps the assignment when positive. Zero assigns every module.
	MaxModules int
}

// Plan implements Policy.
func (p *StudentPolicy) Plan(ctx context.Context) (Plan, error) {
	students, err := p.Students.All()
	if errors.Is(err, fs.ErrNotExist) {
		return Plan{Modules: map[int][]string{}, NoOwners: err}, nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("assignment: list students: %w", err)
	}
	selector := p.Selector
	if selector == nil {
		selector = FirstN{}
	}
	plan := Plan{Modules: make(map[int][]string, len(students))}
	for _, student := range students {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		plan.Modules[student.ID] = []string{}
		fail := func(reason string, err error) {
			plan.Skipped = append(plan.Skipped, &GenerationError{Kind: KindStudent, OwnerID: student.ID, Reason: reason, Err: err})
		}
		code, ok, err := p.Courses.CodeForTitle(student.Course)
		if err != nil {
			fail("load courses", err)
			continue
		}
		if !ok {
			fail(fmt.Sprintf("course %q not found", student.Course), nil)
			continue
		}
		modules, err := p.Modules.ForCourse(code)
		if err != nil {
			fail("load modules for "+code, err)
			continue
		}
		codes := make([]string, 0, len(modules))
		for _, mod := range modules {
			codes = append(codes, mod.Code)
		}
		if p.MaxModules > 0 && len(codes) > p.MaxModules {
			codes = selector.Select(codes, p.MaxModules)
		}
		plan.Modules[student.ID] = codes
	}
	return plan, nil
}

// StaffPolicyFor builds the staff policy over a catalog.
func StaffPolicyFor(c *catalog.Catalog, selector Selector, defaultMax int) *StaffPolicy {
	return &StaffPolicy{
		Staff:             c.Staff,
		Courses:           c.Courses,
		Modules:           c.Modules,
		Selector:          selector,
		DefaultMaxModules: defaultMax,
	}
}

// StudentPolicyFor builds the student policy over a catalog.
func StudentPolicyFor(c *catalog.Catalog, selector Selector, maxModules int) *StudentPolicy {
	return &StudentPolicy{
		Students:   c.Students,
		Courses:    c.Courses,
		Modules:    c.Modules,
		Selector:   selector,
		MaxModules: maxModules,
	}
}
