// Package catalog reads the course, module, staff and student record files.
//
// Accessors hold only a path and re-read the file on every call, so they always
// reflect what is on disk. Staff and student files may be JSON or CSV.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/unirecords/internal/config"
	"github.com/kingrea/unirecords/internal/fileproc"
)

// Catalog bundles the four record accessors.
type Catalog struct {
	Courses  *Courses
	Modules  *Modules
	Staff    *StaffDirectory
	Students *StudentDirectory
}

// New wires accessors to the configured record files.
func New(paths config.Paths) *Catalog {
	return &Catalog{
		Courses:  NewCourses(paths.Courses),
		Modules:  NewModules(paths.Modules),
		Staff:    NewStaffDirectory(paths.Staff),
		Students: NewStudentDirectory(paths.Students),
	}
}

// Courses reads courses.json.
type Courses struct {
	path string
}

// NewCourses returns an accessor for the course file at path.
func NewCourses(path string) *Courses {
	return &Courses{path: path}
}

// Path returns the backing file.
func (c *Courses) Path() string { return c.path }

// All returns every course in file order.
func (c *Courses) All() ([]Course, error) {
	records, err := loadRecords(c.path, "courses")
	if err != nil {
		return nil, err
	}
	out := make([]Course, 0, len(records))
	for i, rec := range records {
		code, _ := rec.String("code")
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("%w: %s courses[%d] has no code", fileproc.ErrParse, c.path, i)
		}
		name, _ := rec.String("name")
		dept, _ := rec.String("department")
		out = append(out, Course{
			Name:       strings.TrimSpace(name),
			Code:       code,
			Department: strings.TrimSpace(dept),
		})
	}
	return out, nil
}

// ByDepartment returns the courses run by the named department.
func (c *Courses) ByDepartment(department string) ([]Course, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	var out []Course
	for _, course := range all {
		if course.Department != "" && sameName(course.Department, department) {
			out = append(out, course)
		}
	}
	return out, nil
}

// ByTitle finds a course by its title.
func (c *Courses) ByTitle(title string) (Course, bool, error) {
	all, err := c.All()
	if err != nil {
		return Course{}, false, err
	}
	for _, course := range all {
		if sameName(course.Name, title) {
			return course, true, nil
		}
	}
	return Course{}, false, nil
}

// CodeForTitle resolves a course title to its code.
func (c *Courses) CodeForTitle(title string) (string, bool, error) {
	course, ok, err := c.ByTitle(title)
	if err != nil || !ok {
		return "", ok, err
	}
	return course.Code, true, nil
}

// Modules reads modules.json.
type Modules struct {
	path string
}

// NewModules returns an accessor for the module file at path.
func NewModules(path string) *Modules {
	return &Modules{path: path}
}

// Path returns the backing file.
func (m *Modules) Path() string { return m.path }

// All returns every module in file order.
func (m *Modules) All() ([]Module, error) {
	records, err := loadRecords(m.path, "modules")
	if err != nil {
		return nil, err
	}
	out := make([]Module, 0, len(records))
	for i, rec := range records {
		code, _ := rec.String("module_code")
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("%w: %s modules[%d] has no module_code", fileproc.ErrParse, m.path, i)
		}
		name, _ := rec.String("module_name")
		year, _ := rec.String("ac_year")
		courses, _ := rec.Strings("associated_courses")
		out = append(out, Module{
			Name:              strings.TrimSpace(name),
			Code:              code,
			AcademicYear:      strings.TrimSpace(year),
			AssociatedCourses: trimAll(courses),
		})
	}
	return out, nil
}

// ForCourse returns the modules associated with a course code.
func (m *Modules) ForCourse(courseCode string) ([]Module, error) {
	all, err := m.All()
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(courseCode)
	var out []Module
	for _, mod := range all {
		for _, associated := range mod.AssociatedCourses {
			if associated == code {
				out = append(out, mod)
				break
			}
		}
	}
	return out, nil
}

// StaffDirectory reads the staff file.
type StaffDirectory struct {
	path string
}

// NewStaffDirectory returns an accessor for the staff file at path.
func NewStaffDirectory(path string) *StaffDirectory {
	return &StaffDirectory{path: path}
}

// Path returns the backing file.
func (s *StaffDirectory) Path() string { return s.path }

// All returns every staff member ordered by ID.
func (s *StaffDirectory) All() ([]Staff, error) {
	records, err := loadRecords(s.path, "staff")
	if err != nil {
		return nil, err
	}
	out := make([]Staff, 0, len(records))
	for i, rec := range records {
		id, ok := rec.Int("id")
		if !ok || id <= 0 {
			return nil, fmt.Errorf("%w: %s staff[%d] has no valid id", fileproc.ErrParse, s.path, i)
		}
		name, _ := rec.String("name")
		dept, _ := rec.String("department")
		maxModules, _ := rec.Int("max_modules")
		out = append(out, Staff{
			ID:         id,
			Name:       strings.TrimSpace(name),
			Department: strings.TrimSpace(dept),
			MaxModules: maxModules,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ByDepartment returns the staff of the named department.
func (s *StaffDirectory) ByDepartment(department string) ([]Staff, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []Staff
	for _, member := range all {
		if sameName(member.Department, department) {
			out = append(out, member)
		}
	}
	return out, nil
}

// StudentDirectory reads the student file.
type StudentDirectory struct {
	path string
}

// NewStudentDirectory returns an accessor for the student file at path.
func NewStudentDirectory(path string) *StudentDirectory {
	return &StudentDirectory{path: path}
}

// Path returns the backing file.
func (s *StudentDirectory) Path() string { return s.path }

// All returns every student ordered by ID.
func (s *StudentDirectory) All() ([]Student, error) {
	records, err := loadRecords(s.path, "students")
	if err != nil {
		return nil, err
	}
	out := make([]Student, 0, len(records))
	for i, rec := range records {
		id, ok := rec.Int("id")
		if !ok || id <= 0 {
			return nil, fmt.Errorf("%w: %s students[%d] has no valid id", fileproc.ErrParse, s.path, i)
		}
		name, _ := rec.String("name")
		course, _ := rec.String("course")
		out = append(out, Student{
			ID:     id,
			Name:   strings.TrimSpace(name),
			Course: strings.TrimSpace(course),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ByCourse returns the students enrolled on the course with the given title.
func (s *StudentDirectory) ByCourse(title string) ([]Student, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []Student
	for _, student := range all {
		if sameName(student.Course, title) {
			out = append(out, student)
		}
	}
	return out, nil
}

func loadRecords(path, key string) ([]fileproc.Record, error) {
	content, err := fileproc.Load(path)
	if err != nil {
		return nil, err
	}
	return content.Records(key)
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
