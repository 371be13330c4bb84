// internal/config/config.go
//
// This package handles configuration and the .unirecords directory structure.
// Every data directory managed by unirecords gets a .unirecords/ folder holding
// config.yaml and the log files; the record files themselves sit next to it.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the name of the directory we create in each data directory
	StateDirName = ".unirecords"

	// DataDirEnv overrides the data directory when none is given explicitly.
	DataDirEnv = "UNIRECORDS_DATA_DIR"

	defaultStaffAssignmentsFile   = "staff_module_assignments.json"
	defaultStudentAssignmentsFile = "student_module_assignments.json"
	defaultCoursesFile            = "courses.json"
	defaultModulesFile            = "modules.json"
	defaultStaffFile              = "staff.json"
	defaultStudentsFile           = "students.json"

	defaultRefreshWorkers  = 4
	defaultRefreshTimeout  = 30 * time.Second
	defaultStaffMaxModules = 4
	defaultSelectionSeed   = 1
	defaultWatchDebounce   = 300 * time.Millisecond
	defaultLogLevel        = "info"
)

const defaultProjectConfigYAML = `# unirecords configuration
version: 1

# Record files. Relative paths are resolved against the data directory.
# staff and students may also point at .csv files.
paths:
  staff_assignments: staff_module_assignments.json
  student_assignments: student_module_assignments.json
  courses: courses.json
  modules: modules.json
  staff: staff.json
  students: students.json

refresh:
  workers: 4
  timeout: 30s

assignments:
  # Used when a staff record has no max_modules of its own.
  staff_default_max_modules: 4
  # 0 assigns every module of the student's course.
  student_max_modules: 0
  # 0 seeds module selection from the clock.
  selection_seed: 1

watch:
  debounce: 300ms

log:
  level: info
`

// PathsConfig names the record files backing each data category.
type PathsConfig struct {
	StaffAssignments   string `yaml:"staff_assignments" validate:"required"`
	StudentAssignments string `yaml:"student_assignments" validate:"required"`
	Courses            string `yaml:"courses" validate:"required"`
	Modules            string `yaml:"modules" validate:"required"`
	Staff              string `yaml:"staff" validate:"required"`
	Students           string `yaml:"students" validate:"required"`
}

// RefreshConfig bounds the refresh worker pool.
type RefreshConfig struct {
	Workers int           `yaml:"workers" validate:"gte=1,lte=64"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// AssignmentsConfig tunes assignment generation.
type AssignmentsConfig struct {
	StaffDefaultMaxModules int   `yaml:"staff_default_max_modules" validate:"gte=0"`
	StudentMaxModules      int   `yaml:"student_max_modules" validate:"gte=0"`
	SelectionSeed          int64 `yaml:"selection_seed"`
}

// WatchConfig tunes the change watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ProjectConfig models .unirecords/config.yaml.
type ProjectConfig struct {
	Version     int               `yaml:"version" validate:"gte=1"`
	Paths       PathsConfig       `yaml:"paths"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Assignments AssignmentsConfig `yaml:"assignments"`
	Watch       WatchConfig       `yaml:"watch"`
	Log         LogConfig         `yaml:"log"`
}

// Paths is the resolved, absolute location of every record file.
type Paths struct {
	StaffAssignments   string
	StudentAssignments string
	Courses            string
	Modules            string
	Staff              string
	Students           string
}

// Config holds the runtime configuration for unirecords.
type Config struct {
	// DataDir is the directory holding the record files
	DataDir string

	// StateDir is DataDir/.unirecords
	StateDir string

	Project ProjectConfig
}

var validate = validator.New()

// InitDataDir creates the .unirecords directory structure in the given data directory.
//
// Structure created:
// .unirecords/
// ├── config.yaml
// └── logs/         <- unirecords.log and refresh.log
func InitDataDir(dataDir string) error {
	stateDir := filepath.Join(dataDir, StateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// ResolveDataDir returns dir, or $UNIRECORDS_DATA_DIR, or the working directory, as an absolute path.
func ResolveDataDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(DataDirEnv))
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("config: determine working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve data dir: %w", err)
	}
	return abs, nil
}

// NewConfig creates a new Config instance populated with the data directory's settings.
// A missing config.yaml yields the defaults.
func NewConfig(dataDir string) (*Config, error) {
	dir, err := ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		DataDir:  dir,
		StateDir: filepath.Join(dir, StateDirName),
		Project:  defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// Paths returns the absolute record file locations.
func (c *Config) Paths() Paths {
	p := c.Project.Paths
	return Paths{
		StaffAssignments:   resolvePath(c.DataDir, p.StaffAssignments),
		StudentAssignments: resolvePath(c.DataDir, p.StudentAssignments),
		Courses:            resolvePath(c.DataDir, p.Courses),
		Modules:            resolvePath(c.DataDir, p.Modules),
		Staff:              resolvePath(c.DataDir, p.Staff),
		Students:           resolvePath(c.DataDir, p.Students),
	}
}

// SetStudentMaxModules updates the student cap and persists it to config.yaml.
func (c *Config) SetStudentMaxModules(limit int) error {
	if limit < 0 {
		return fmt.Errorf("config: student max modules must be >= 0")
	}
	c.Project.Assignments.StudentMaxModules = limit
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Paths: PathsConfig{
			StaffAssignments:   defaultStaffAssignmentsFile,
			StudentAssignments: defaultStudentAssignmentsFile,
			Courses:            defaultCoursesFile,
			Modules:            defaultModulesFile,
			Staff:              defaultStaffFile,
			Students:           defaultStudentsFile,
		},
		Refresh: RefreshConfig{
			Workers: defaultRefreshWorkers,
			Timeout: defaultRefreshTimeout,
		},
		Assignments: AssignmentsConfig{
			StaffDefaultMaxModules: defaultStaffMaxModules,
			SelectionSeed:          defaultSelectionSeed,
		},
		Watch: WatchConfig{Debounce: defaultWatchDebounce},
		Log:   LogConfig{Level: defaultLogLevel},
	}
}

func (pc *ProjectConfig) normalize() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	pc.Paths.StaffAssignments = strings.TrimSpace(pc.Paths.StaffAssignments)
	pc.Paths.StudentAssignments = strings.TrimSpace(pc.Paths.StudentAssignments)
	pc.Paths.Courses = strings.TrimSpace(pc.Paths.Courses)
	pc.Paths.Modules = strings.TrimSpace(pc.Paths.Modules)
	pc.Paths.Staff = strings.TrimSpace(pc.Paths.Staff)
	pc.Paths.Students = strings.TrimSpace(pc.Paths.Students)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	if pc.Log.Level == "" {
		pc.Log.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) validate() error {
	if err := validate.Struct(pc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}
	if pc.Paths.StaffAssignments == pc.Paths.StudentAssignments {
		return fmt.Errorf("paths.staff_assignments and paths.student_assignments must differ")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}
