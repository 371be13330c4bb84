package main

import (
	"fmt"

	"github.com/kingrea/unirecords/internal/assignment"
	"github.com/kingrea/unirecords/internal/catalog"
	"github.com/kingrea/unirecords/internal/config"
	"github.com/kingrea/unirecords/internal/logbook"
	"github.com/kingrea/unirecords/internal/logging"
	"github.com/kingrea/unirecords/internal/refresh"
)

// app wires the record layer for one data directory.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	catalog  *catalog.Catalog
	staff    *assignment.Repository
	students *assignment.Repository
	view     *refresh.View
	metrics  *refresh.Metrics
	journal  *logbook.Logbook

	// studentPolicy is kept so the student cap can change at runtime.
	studentPolicy *assignment.StudentPolicy
}

func newApp(dataDir string, logOpts ...logging.Option) (*app, error) {
	dir, err := config.ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}
	if err := config.InitDataDir(dir); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.StateDirName, err)
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg, logOpts...)
	if err != nil {
		return nil, err
	}
	journal, err := logbook.Open(cfg)
	if err != nil {
		logger.Close()
		return nil, err
	}

	paths := cfg.Paths()
	settings := cfg.Project.Assignments
	c := catalog.New(paths)
	selector := assignment.NewRandomSelector(settings.SelectionSeed)
	staff, err := assignment.NewStaffRepository(paths.StaffAssignments,
		assignment.StaffPolicyFor(c, selector, settings.StaffDefaultMaxModules),
		assignment.WithLogger(logger.Logger))
	if err != nil {
		logger.Close()
		return nil, err
	}
	studentPolicy := assignment.StudentPolicyFor(c, selector, settings.StudentMaxModules)
	students, err := assignment.NewStudentRepository(paths.StudentAssignments, studentPolicy,
		assignment.WithLogger(logger.Logger))
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &app{
		cfg:           cfg,
		logger:        logger,
		catalog:       c,
		staff:         staff,
		students:      students,
		view:          refresh.NewView(),
		metrics:       refresh.NewMetrics(),
		journal:       journal,
		studentPolicy: studentPolicy,
	}, nil
}

// orchestrator builds a refresh orchestrator reporting to the journal and the
// given sinks.
func (a *app) orchestrator(sinks ...refresh.ProgressSink) *refresh.Orchestrator {
	fanout := refresh.NewFanout(append([]refresh.ProgressSink{a.journal}, sinks...)...)
	return refresh.New(
		refresh.DefaultUnits(a.catalog, a.staff, a.students, a.view),
		refresh.WithSink(fanout),
		refresh.WithWorkers(a.cfg.Project.Refresh.Workers),
		refresh.WithTimeout(a.cfg.Project.Refresh.Timeout),
		refresh.WithLogger(a.logger.Logger),
		refresh.WithMetrics(a.metrics),
		refresh.WithGenerators(a.staff, a.students),
	)
}

func (a *app) repository(kind assignment.Kind) *assignment.Repository {
	if kind == assignment.KindStaff {
		return a.staff
	}
	return a.students
}

// setStudentMaxModules persists a new student cap and applies it to later
// generation runs.
func (a *app) setStudentMaxModules(limit int) error {
	if err := a.cfg.SetStudentMaxModules(limit); err != nil {
		return err
	}
	a.studentPolicy.MaxModules = limit
	return nil
}

func (a *app) Close() error {
	return a.logger.Close()
}
