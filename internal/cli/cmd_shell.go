package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Group: groupTools,
		Short: "Interactive prompt",
		Long: "Read commands interactively. Every tabledb command works without the\n" +
			"\"tabledb\" prefix; quote JSON arguments with single quotes.\n" +
			"Type 'help' for commands and 'exit' to leave.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if a.inShell {
				return errors.New("already in a shell")
			}

			p, err := a.prompter()
			if err != nil {
				return err
			}
			defer p.Close()

			return a.repl(ctx, o, p)
		},
	}
}

// prompter reads shell lines.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// prompter returns a liner prompt when attached to the process's stdin and
// a plain line reader otherwise (pipes, tests).
func (a *app) prompter() (prompter, error) {
	if f, ok := a.in.(*os.File); ok && f == os.Stdin {
		return newLinePrompter(a), nil
	}

	if a.in == nil {
		return nil, errors.New("shell needs stdin")
	}

	return &scanPrompter{scanner: bufio.NewScanner(a.in)}, nil
}

func (a *app) repl(ctx context.Context, o *IO, p prompter) error {
	a.inShell = true
	defer func() { a.inShell = false }()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := p.Prompt("tabledb> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.AppendHistory(line)

		args, err := SplitArgs(line)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		switch args[0] {
		case "exit", "quit", "q":
			return nil
		}

		// Errors are already printed by the command; the shell keeps going.
		a.dispatch(ctx, NewIO(o.out, o.errOut), args)
	}
}

// SplitArgs splits a shell line into arguments. Single quotes keep their
// content verbatim, double quotes allow \" and \\ escapes, and a backslash
// outside quotes escapes the next character.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)

			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped, inArg = true, true
		case r == '\'' || r == '"':
			quote, inArg = r, true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()

				inArg = false
			}
		default:
			cur.WriteRune(r)

			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}

	if escaped {
		return nil, errors.New("trailing backslash")
	}

	if inArg {
		args = append(args, cur.String())
	}

	if len(args) == 0 {
		return nil, errors.New("empty command")
	}

	return args, nil
}

// linePrompter is the interactive liner-backed prompt with history and
// command completion.
type linePrompter struct {
	state   *liner.State
	history string
}

func newLinePrompter(a *app) *linePrompter {
	p := &linePrompter{state: liner.NewLiner(), history: historyFile(a.env)}

	p.state.SetCtrlCAborts(true)

	names := []string{"exit", "help"}
	for _, c := range a.commands() {
		names = append(names, c.Name())
	}

	p.state.SetCompleter(func(line string) []string {
		if strings.ContainsAny(line, " \t") {
			return nil
		}

		var out []string

		for _, n := range names {
			if strings.HasPrefix(n, line) {
				out = append(out, n)
			}
		}

		return out
	})

	if f, err := os.Open(p.history); err == nil {
		_, _ = p.state.ReadHistory(f)
		_ = f.Close()
	}

	return p
}

func (p *linePrompter) Prompt(prompt string) (string, error) { return p.state.Prompt(prompt) }
func (p *linePrompter) AppendHistory(line string)             { p.state.AppendHistory(line) }

func (p *linePrompter) Close() error {
	if p.history != "" {
		if f, err := os.Create(p.history); err == nil {
			_, _ = p.state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return p.state.Close()
}

// historyFile returns the path to the history file, or "" without a home.
func historyFile(env map[string]string) string {
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".tabledb_history")
	}

	return ""
}

// scanPrompter reads lines from a non-interactive reader.
type scanPrompter struct {
	scanner *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return p.scanner.Text(), nil
}

func (*scanPrompter) AppendHistory(string) {}
func (*scanPrompter) Close() error         { return nil }
