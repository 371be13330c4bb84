package assignment

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Kind identifies whose assignments a store holds.
type Kind struct {
	name    string
	idField string
}

var (
	// KindStaff stores staff teaching assignments under "staffId".
	KindStaff = Kind{name: "staff", idField: "staffId"}
	// KindStudent stores student enrolments under "studentId".
	KindStudent = Kind{name: "student", idField: "studentId"}
)

// ParseKind maps "staff" or "student" to a Kind.
func ParseKind(value string) (Kind, error) {
	switch value {
	case KindStaff.name:
		return KindStaff, nil
	case KindStudent.name, "students":
		return KindStudent, nil
	default:
		return Kind{}, fmt.Errorf("assignment: unknown owner kind %q", value)
	}
}

func (k Kind) String() string { return k.name }

// IDField is the JSON key holding the owner id.
func (k Kind) IDField() string { return k.idField }

// Assignment is the set of modules held by one owner.
type Assignment struct {
	OwnerID     int
	ModuleIDs   []string
	LastUpdated time.Time
}

// Store maps owner id to that owner's assignment.
type Store map[int]Assignment

// Sorted returns the assignments ordered by owner id.
func (s Store) Sorted() []Assignment {
	out := make([]Assignment, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out
}

// ErrGeneration matches every GenerationError via errors.Is.
var ErrGeneration = errors.New("assignment: generation failed")

// GenerationError records an owner that received an empty assignment because
// its modules could not be worked out. It never aborts a generation run.
type GenerationError struct {
	Kind    Kind
	OwnerID int
	Reason  string
	Err     error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("assignment: %s %d: %s", e.Kind, e.OwnerID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerationReport summarises a Generate run.
type GenerationReport struct {
	Kind     Kind
	Owners   int
	Assigned int
	Skipped  []*GenerationError
}
