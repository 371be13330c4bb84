package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/common/expfmt"

	"github.com/kingrea/unirecords/internal/assignment"
	"github.com/kingrea/unirecords/internal/refresh"
	"github.com/kingrea/unirecords/internal/tui"
	"github.com/kingrea/unirecords/internal/watch"
)

// printer echoes progress messages to the terminal.
func printer(out io.Writer) refresh.SinkFunc {
	return func(message string) {
		fmt.Fprintln(out, message)
	}
}

func runInit(ctx context.Context, a *app, args []string, out io.Writer) error {
	if err := a.orchestrator(printer(out)).InitialiseData(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Data directory: %s\n", a.cfg.DataDir)
	fmt.Fprintf(out, "Config: %s\n", a.cfg.ProjectConfigPath())
	return nil
}

func runRefresh(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(out)
	showMetrics := fs.Bool("metrics", false, "print refresh metrics in Prometheus text format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	category := refresh.All
	if fs.NArg() > 0 {
		var err error
		if category, err = refresh.ParseCategory(fs.Arg(0)); err != nil {
			return err
		}
	}

	outcome := a.orchestrator(printer(out)).RefreshSpecific(ctx, category)
	if *showMetrics {
		if err := writeMetrics(a, out); err != nil {
			return err
		}
	}
	if !outcome.OK() {
		return fmt.Errorf("%s refresh failed", category)
	}
	return nil
}

func writeMetrics(a *app, out io.Writer) error {
	families, err := a.metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}

func runGenerate(ctx context.Context, a *app, args []string, out io.Writer) error {
	target := "all"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		target, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(out)
	studentMax := fs.Int("student-max", -1, "cap student assignments at n modules (0 = whole course) and save it to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studentMax >= 0 {
		if err := a.setStudentMaxModules(*studentMax); err != nil {
			return err
		}
	}
	var repos []*assignment.Repository
	if target == "all" {
		repos = []*assignment.Repository{a.staff, a.students}
	} else {
		kind, err := assignment.ParseKind(target)
		if err != nil {
			return err
		}
		repos = []*assignment.Repository{a.repository(kind)}
	}
	for _, repo := range repos {
		report, err := repo.Generate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Generated %s assignments: %d owners, %d with modules\n", report.Kind, report.Owners, report.Assigned)
		for _, skipped := range report.Skipped {
			fmt.Fprintf(out, "  skipped %s %d: %s\n", report.Kind, skipped.OwnerID, skipped.Reason)
		}
		a.journal.Info("Generated %s assignments for %d owners (%d skipped)", report.Kind, report.Owners, len(report.Skipped))
	}
	return nil
}

func parseOwner(args []string, minArgs int, usage string) (assignment.Kind, int, error) {
	if len(args) < minArgs {
		return assignment.Kind{}, 0, fmt.Errorf("usage: %s", usage)
	}
	kind, err := assignment.ParseKind(args[0])
	if err != nil {
		return assignment.Kind{}, 0, err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return assignment.Kind{}, 0, fmt.Errorf("invalid owner id %q", args[1])
	}
	return kind, id, nil
}

func runAssign(ctx context.Context, a *app, args []string, out io.Writer) error {
	kind, id, err := parseOwner(args, 3, "assign <staff|student> <id> <module>...")
	if err != nil {
		return err
	}
	modules := args[2:]
	if err := a.repository(kind).Update(ctx, id, modules); err != nil {
		return err
	}
	a.journal.Info("Assigned %s %d: %s", kind, id, strings.Join(modules, ", "))
	fmt.Fprintf(out, "%s %d: %s\n", kind, id, strings.Join(modules, ", "))
	return nil
}

func runUnassign(ctx context.Context, a *app, args []string, out io.Writer) error {
	kind, id, err := parseOwner(args, 2, "unassign <staff|student> <id>")
	if err != nil {
		return err
	}
	if err := a.repository(kind).Remove(ctx, id); err != nil {
		return err
	}
	a.journal.Info("Removed %s %d assignments", kind, id)
	fmt.Fprintf(out, "%s %d: removed\n", kind, id)
	return nil
}

func runShow(ctx context.Context, a *app, args []string, out io.Writer) error {
	kind, id, err := parseOwner(args, 2, "show <staff|student> <id>")
	if err != nil {
		return err
	}
	modules, err := a.repository(kind).Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d%s\n", kind, id, a.ownerLabel(kind, id))
	if len(modules) == 0 {
		fmt.Fprintln(out, "  no modules assigned")
		return nil
	}
	names := map[string]string{}
	if all, err := a.catalog.Modules.All(); err == nil {
		for _, m := range all {
			names[m.Code] = m.Name
		}
	}
	for _, code := range modules {
		if name := names[code]; name != "" {
			fmt.Fprintf(out, "  %s  %s\n", code, name)
		} else {
			fmt.Fprintf(out, "  %s\n", code)
		}
	}
	return nil
}

// ownerLabel describes an owner from the catalog, or returns "" when the
// lookup fails.
func (a *app) ownerLabel(kind assignment.Kind, id int) string {
	if kind == assignment.KindStaff {
		staff, err := a.catalog.Staff.All()
		if err != nil {
			return ""
		}
		for _, s := range staff {
			if s.ID == id {
				return fmt.Sprintf(" (%s, %s)", s.Name, s.Department)
			}
		}
		return ""
	}
	students, err := a.catalog.Students.All()
	if err != nil {
		return ""
	}
	for _, s := range students {
		if s.ID == id {
			return fmt.Sprintf(" (%s, %s)", s.Name, s.Course)
		}
	}
	return ""
}

func runWatch(ctx context.Context, a *app, args []string, out io.Writer) error {
	orch := a.orchestrator(printer(out))
	w, err := watch.New(a.cfg.Paths(), orch,
		watch.WithDebounce(a.cfg.Project.Watch.Debounce),
		watch.WithLogger(a.logger.Logger))
	if err != nil {
		return err
	}
	defer w.Close()
	fmt.Fprintf(out, "Watching %s (ctrl+c to stop)\n", a.cfg.DataDir)
	return w.Run(ctx)
}

func runTUI(ctx context.Context, a *app, args []string, out io.Writer) error {
	bridge := &tui.Bridge{}
	orch := a.orchestrator(bridge)
	model := tui.NewApp(orch, a.view, tui.WithLogbook(a.journal), tui.WithContext(ctx))
	if err := tui.Run(ctx, model, bridge); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runLog(ctx context.Context, a *app, args []string, out io.Writer) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid line count %q", args[0])
		}
		n = v
	}
	lines, total := a.journal.Tail(n)
	if total == 0 {
		fmt.Fprintf(out, "%s is empty\n", a.journal.Path())
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if total > len(lines) {
		fmt.Fprintf(out, "(%d of %d entries)\n", len(lines), total)
	}
	return nil
}
