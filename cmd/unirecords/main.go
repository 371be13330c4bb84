// cmd/unirecords/main.go
//
// This is the entry point for the unirecords CLI.
//
// Every subcommand works on one data directory: -data, then
// $UNIRECORDS_DATA_DIR, then the working directory. The directory holds the
// record files and a .unirecords/ folder with config.yaml and logs.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kingrea/unirecords/internal/logging"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commands = map[string]command{
	"init":     {"init", runInit},
	"refresh":  {"refresh [all|students|staff|courses|modules|assignments] [-metrics]", runRefresh},
	"generate": {"generate [staff|student|all] [-student-max n]", runGenerate},
	"assign":   {"assign <staff|student> <id> <module>...", runAssign},
	"unassign": {"unassign <staff|student> <id>", runUnassign},
	"show":     {"show <staff|student> <id>", runShow},
	"watch":    {"watch", runWatch},
	"tui":      {"tui", runTUI},
	"log":      {"log [n]", runLog},
}

var order = []string{"init", "refresh", "generate", "assign", "unassign", "show", "watch", "tui", "log"}

func main() {
	dataDir := flag.String("data", "", "data directory holding the record files (defaults to $UNIRECORDS_DATA_DIR or cwd)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	name := "tui"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		usage()
		os.Exit(2)
	}

	var logOpts []logging.Option
	if name == "tui" {
		logOpts = append(logOpts, logging.WithoutConsole())
	}
	a, err := newApp(*dataDir, logOpts...)
	if err != nil {
		die("%v", err)
	}
	defer a.Close()
	a.logger.Printf("unirecords %s in %s", name, a.cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.run(ctx, a, args, os.Stdout); err != nil {
		a.Close()
		die("%s: %v", name, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: unirecords [-data dir] <command> [args]")
	fmt.Fprintln(os.Stderr)
	for _, name := range order {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
