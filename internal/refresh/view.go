package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/kingrea/unirecords/internal/assignment"
	"github.com/kingrea/unirecords/internal/catalog"
)

// View is the last loaded snapshot of every category. Front ends read from it
// while refresh units replace its parts.
type View struct {
	mu                 sync.RWMutex
	students           []catalog.Student
	staff              []catalog.Staff
	courses            []catalog.Course
	modules            []catalog.Module
	staffAssignments   assignment.Store
	studentAssignments assignment.Store
	loaded             map[Category]time.Time
}

// NewView returns an empty snapshot.
func NewView() *View {
	return &View{loaded: map[Category]time.Time{}}
}

func (v *View) Students() []catalog.Student {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]catalog.Student(nil), v.students...)
}

func (v *View) Staff() []catalog.Staff {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]catalog.Staff(nil), v.staff...)
}

func (v *View) Courses() []catalog.Course {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]catalog.Course(nil), v.courses...)
}

func (v *View) Modules() []catalog.Module {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]catalog.Module(nil), v.modules...)
}

// Assignments returns a copy of the store for kind.
func (v *View) Assignments(kind assignment.Kind) assignment.Store {
	v.mu.RLock()
	defer v.mu.RUnlock()
	src := v.studentAssignments
	if kind == assignment.KindStaff {
		src = v.staffAssignments
	}
	out := make(assignment.Store, len(src))
	for id, a := range src {
		a.ModuleIDs = append([]string{}, a.ModuleIDs...)
		out[id] = a
	}
	return out
}

// LoadedAt reports when category was last refreshed.
func (v *View) LoadedAt(category Category) (time.Time, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	at, ok := v.loaded[category]
	return at, ok
}

// set publishes a category unless ctx is already done. A unit that outlived
// its deadline has been reported as timed out and must not replace data a
// newer refresh published.
func (v *View) set(ctx context.Context, category Category, apply func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ctx.Err() != nil {
		return timeoutError(ctx)
	}
	apply()
	v.loaded[category] = time.Now()
	return nil
}
