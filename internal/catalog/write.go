package catalog

import "github.com/kingrea/unirecords/internal/fileproc"

// WriteCourses replaces the course file with courses.
func WriteCourses(path string, courses []Course) error {
	if courses == nil {
		courses = []Course{}
	}
	return fileproc.WriteJSON(path, map[string]any{"courses": courses})
}

// WriteModules replaces the module file with modules.
func WriteModules(path string, modules []Module) error {
	if modules == nil {
		modules = []Module{}
	}
	return fileproc.WriteJSON(path, map[string]any{"modules": modules})
}

// WriteStaff replaces a JSON staff file with staff.
func WriteStaff(path string, staff []Staff) error {
	if staff == nil {
		staff = []Staff{}
	}
	return fileproc.WriteJSON(path, map[string]any{"staff": staff})
}

// WriteStudents replaces a JSON student file with students.
func WriteStudents(path string, students []Student) error {
	if students == nil {
		students = []Student{}
	}
	return fileproc.WriteJSON(path, map[string]any{"students": students})
}
