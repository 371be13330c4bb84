package catalog

// Course is one entry of courses.json.
type Course struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Department string `json:"department,omitempty"`
}

// Module is one entry of modules.json.
type Module struct {
	Name              string   `json:"module_name"`
	Code              string   `json:"module_code"`
	AcademicYear      string   `json:"ac_year"`
	AssociatedCourses []string `json:"associated_courses"`
}

// Staff is a member of staff. MaxModules is the teaching capacity used when
// generating assignments; zero means the configured default applies.
type Staff struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	MaxModules int    `json:"max_modules,omitempty"`
}

// Student is an enrolled student. Course holds the course title, not its code.
type Student struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Course string `json:"course"`
}
