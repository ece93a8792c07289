// Package cli implements the tabledb command line: global flag parsing,
// layered config, and one [Command] per operation on the database file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns exit code.
//
// args includes the program name. sigCh, when non-nil, cancels the running
// command on the first signal.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if len(args) < 2 {
		printUsage(out, nil)

		return 0
	}

	globals, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return 1
	}

	if globals.help || len(globals.remaining) == 0 {
		printUsage(out, nil)

		return 0
	}

	cfg, err := LoadConfig(globals.input(env))
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a := &app{
		cfg: cfg,
		log: newLogger(errOut, cfg),
		in:  in,
		env: env,
	}

	return a.dispatch(ctx, NewIO(out, errOut), globals.remaining)
}

// app is the state shared by all commands of one invocation.
type app struct {
	cfg Config
	log *slog.Logger
	in  io.Reader
	env map[string]string

	// inShell is set while commands run inside the REPL.
	inShell bool
}

// commands returns fresh command instances. Flag sets keep parsed state, so
// every dispatch gets its own.
func (a *app) commands() []*Command {
	return []*Command{
		InitCmd(a),
		DestroyCmd(a),
		TablesCmd(a),
		CopyCmd(a),
		CreateTableCmd(a),
		DropTableCmd(a),
		AddColumnCmd(a),
		DropColumnCmd(a),
		DescribeCmd(a),
		InsertCmd(a),
		UpdateCmd(a),
		DeleteCmd(a),
		SelectCmd(a),
		AggCmd(a),
		ExportSQLiteCmd(a),
		ShellCmd(a),
		PrintConfigCmd(a),
	}
}

// dispatch runs the command named by args[0] and returns its exit code.
func (a *app) dispatch(ctx context.Context, o *IO, args []string) int {
	cmds := a.commands()

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(o.Out(), cmds)

		return 0
	}

	for _, cmd := range cmds {
		if cmd.Name() != name {
			continue
		}

		code := cmd.Run(ctx, o, args[1:])
		o.Finish()

		return code
	}

	o.ErrPrintln("error:", fmt.Errorf("%w: %s", ErrUnknownCommand, name))

	var usage strings.Builder

	printUsage(&usage, cmds)
	o.ErrPrintln(strings.TrimRight(usage.String(), "\n"))

	return 1
}

type globalFlags struct {
	workDir    string
	configPath string
	db         string
	friendly   *bool
	logLevel   string
	logFormat  string
	help       bool
	remaining  []string
}

func (g globalFlags) input(env map[string]string) LoadConfigInput {
	return LoadConfigInput{
		WorkDirOverride:   g.workDir,
		ConfigPath:        g.configPath,
		DBOverride:        g.db,
		FriendlyOverride:  g.friendly,
		LogLevelOverride:  g.logLevel,
		LogFormatOverride: g.logFormat,
		Env:               env,
	}
}

// parseGlobalFlags parses flags up to the first non-flag argument, which is
// the command.
func parseGlobalFlags(args []string) (globalFlags, error) {
	var g globalFlags

	fs := flag.NewFlagSet("tabledb", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&g.workDir, "cwd", "C", "", "Run as if started in `dir`")
	fs.StringVarP(&g.configPath, "config", "c", "", "Use specified config `file`")
	fs.StringVar(&g.db, "db", "", "Database file `path`")
	friendly := fs.Bool("friendly", false, "Explain errors in full sentences")
	fs.StringVar(&g.logLevel, "log-level", "", "Log `level`: debug, info, warn, error")
	fs.StringVar(&g.logFormat, "log-format", "", "Log `format`: text, json")
	fs.BoolVarP(&g.help, "help", "h", false, "Show help")

	err := fs.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			g.help = true

			return g, nil
		}

		return globalFlags{}, err
	}

	if fs.Changed("friendly") {
		g.friendly = friendly
	}

	g.remaining = fs.Args()

	return g, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, cmds []*Command) {
	if cmds == nil {
		cmds = (&app{}).commands()
	}

	fprintln(w, `tabledb - schema-aware tables in a single JSON file

Usage: tabledb [options] <command> [args]

Options:
  -C, --cwd <dir>         Run as if started in <dir>
  -c, --config <file>     Use specified config file
      --db <path>         Database file (default tabledb.json)
      --friendly          Explain errors in full sentences
      --log-level <lvl>   debug, info, warn or error (default error)
      --log-format <fmt>  text or json (default text)

Commands:`+strings.TrimRight(groupedHelp(cmds), "\n"))
	fprintln(w, "\nRun 'tabledb <command> --help' for flags and examples.")
}
