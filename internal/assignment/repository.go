package assignment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kingrea/unirecords/internal/fileproc"
)

const rootKey = "assignments"

// timestamps written by older tools carry no zone
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

var (
	validate  = validator.New()
	fileLocks sync.Map
)

// lockFor returns the mutex guarding read-modify-write cycles on path. Every
// Repository for the same file shares it.
func lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mu, _ := fileLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Repository loads, saves, generates and updates the assignments of one owner kind.
type Repository struct {
	kind   Kind
	path   string
	policy Policy
	clock  func() time.Time
	logger *zap.Logger
	mu     *sync.Mutex
}

// Option customizes a Repository during construction.
type Option func(*Repository)

// WithClock overrides the clock used for lastUpdated stamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a repository for kind backed by the JSON file at path. policy may
// be nil when the caller never generates.
func New(kind Kind, path string, policy Policy, opts ...Option) (*Repository, error) {
	if kind.idField == "" {
		return nil, fmt.Errorf("assignment: owner kind is required")
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("assignment: %s path is required", kind)
	}
	r := &Repository{
		kind:   kind,
		path:   path,
		policy: policy,
		clock:  time.Now,
		logger: zap.NewNop(),
		mu:     lockFor(path),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewStaffRepository wires the staff repository to its generation policy.
func NewStaffRepository(path string, policy *StaffPolicy, opts ...Option) (*Repository, error) {
	var p Policy
	if policy != nil {
		p = policy
	}
	return New(KindStaff, path, p, opts...)
}

// NewStudentRepository wires the student repository to its generation policy.
func NewStudentRepository(path string, policy *StudentPolicy, opts ...Option) (*Repository, error) {
	var p Policy
	if policy != nil {
		p = policy
	}
	return New(KindStudent, path, p, opts...)
}

// Kind reports the owner kind.
func (r *Repository) Kind() Kind { return r.kind }

// Path returns the backing file.
func (r *Repository) Path() string { return r.path }

// Exists reports whether the backing file is present.
func (r *Repository) Exists() (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", fileproc.ErrIO, r.path, err)
}

// Load reads the whole store. A missing file is an empty store.
func (r *Repository) Load(ctx context.Context) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.load()
}

// Save replaces the backing file with store.
func (r *Repository) Save(ctx context.Context, store Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(store)
}

// Get returns the module ids assigned to owner, or an empty slice.
func (r *Repository) Get(ctx context.Context, ownerID int) ([]string, error) {
	store, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := store[ownerID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, a.ModuleIDs...), nil
}

type updateRequest struct {
	OwnerID   int      `validate:"gt=0"`
	ModuleIDs []string `validate:"dive,required"`
}

// Update replaces the assignment of one owner and persists the store.
func (r *Repository) Update(ctx context.Context, ownerID int, moduleIDs []string) error {
	req := updateRequest{OwnerID: ownerID, ModuleIDs: make([]string, 0, len(moduleIDs))}
	for _, id := range moduleIDs {
		req.ModuleIDs = append(req.ModuleIDs, strings.TrimSpace(id))
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("assignment: invalid %s update: %w", r.kind, err)
	}
	return r.mutate(ctx, func(store Store) {
		store[ownerID] = Assignment{OwnerID: ownerID, ModuleIDs: req.ModuleIDs, LastUpdated: r.clock()}
	})
}

// Remove deletes the assignment of one owner if present.
func (r *Repository) Remove(ctx context.Context, ownerID int) error {
	return r.mutate(ctx, func(store Store) {
		delete(store, ownerID)
	})
}

func (r *Repository) mutate(ctx context.Context, change func(Store)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	store, err := r.load()
	if err != nil {
		return err
	}
	change(store)
	return r.save(store)
}

// Generate rebuilds the store from scratch for every known owner and saves it
// once. Owners whose modules cannot be resolved get an empty assignment and are
// listed in the report.
func (r *Repository) Generate(ctx context.Context) (GenerationReport, error) {
	if r.policy == nil {
		return GenerationReport{}, fmt.Errorf("assignment: no generation policy for %s", r.kind)
	}
	if err := ctx.Err(); err != nil {
		return GenerationReport{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := r.policy.Plan(ctx)
	if err != nil {
		return GenerationReport{}, err
	}
	if plan.NoOwners != nil {
		r.logger.Warn("assignment_owner_file_missing",
			zap.String("kind", r.kind.String()),
			zap.Error(plan.NoOwners),
		)
	}
	now := r.clock()
	store := make(Store, len(plan.Modules))
	report := GenerationReport{Kind: r.kind, Owners: len(plan.Modules), Skipped: plan.Skipped}
	for owner, modules := range plan.Modules {
		if modules == nil {
			modules = []string{}
		}
		store[owner] = Assignment{OwnerID: owner, ModuleIDs: modules, LastUpdated: now}
		if len(modules) > 0 {
			report.Assigned++
		}
	}
	for _, skipped := range plan.Skipped {
		r.logger.Warn("assignment_generation_skipped",
			zap.String("kind", r.kind.String()),
			zap.Int("owner_id", skipped.OwnerID),
			zap.String("reason", skipped.Reason),
			zap.Error(skipped.Err),
		)
	}
	if err := r.save(store); err != nil {
		return GenerationReport{}, err
	}
	r.logger.Info("assignments_generated",
		zap.String("kind", r.kind.String()),
		zap.Int("owners", report.Owners),
		zap.Int("assigned", report.Assigned),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (r *Repository) load() (Store, error) {
	content, err := fileproc.LoadJSON(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Store{}, nil
		}
		return nil, err
	}
	if _, err := content.Single(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fileproc.ErrParse, r.path, err)
	}
	records, err := content.Records(rootKey)
	if err != nil {
		return nil, err
	}
	store := make(Store, len(records))
	for i, rec := range records {
		id, ok := rec.Int(r.kind.idField)
		if !ok || id <= 0 {
			return nil, fmt.Errorf("%w: %s %s[%d] has no valid %s", fileproc.ErrParse, r.path, rootKey, i, r.kind.idField)
		}
		modules, err := moduleIDs(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s[%d]: %w", fileproc.ErrParse, r.path, rootKey, i, err)
		}
		stamp, err := lastUpdated(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s[%d]: %w", fileproc.ErrParse, r.path, rootKey, i, err)
		}
		store[id] = Assignment{OwnerID: id, ModuleIDs: modules, LastUpdated: stamp}
	}
	return store, nil
}

func (r *Repository) save(store Store) error {
	entries := make([]map[string]any, 0, len(store))
	for _, a := range store.Sorted() {
		modules := a.ModuleIDs
		if modules == nil {
			modules = []string{}
		}
		entries = append(entries, map[string]any{
			r.kind.idField: a.OwnerID,
			"moduleIds":    modules,
			"lastUpdated":  a.LastUpdated.UTC().Format(time.RFC3339Nano),
		})
	}
	return fileproc.WriteJSON(r.path, map[string]any{rootKey: entries})
}

// moduleIDs reads moduleIds strictly. Only a missing or null value counts as
// empty; anything else that is not a list of strings is rejected so a later
// save cannot drop it.
func moduleIDs(rec fileproc.Record) ([]string, error) {
	switch v := rec["moduleIds"].(type) {
	case nil:
		return []string{}, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("moduleIds[%d] is %T, want string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return append([]string{}, v...), nil
	default:
		return nil, fmt.Errorf("moduleIds is %T, want list", v)
	}
}

func lastUpdated(rec fileproc.Record) (time.Time, error) {
	raw, present := rec["lastUpdated"]
	if !present || raw == nil {
		return time.Time{}, nil
	}
	value, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("lastUpdated is %T, want string", raw)
	}
	return parseTime(value)
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("lastUpdated %q is not a timestamp", value)
}
