package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command groups, in the order the usage lists them.
const (
	groupDatabase = "Database"
	groupSchema   = "Schema"
	groupRows     = "Rows"
	groupQuery    = "Query"
	groupTools    = "Tools"
)

var groupOrder = []string{groupDatabase, groupSchema, groupRows, groupQuery, groupTools}

// Command is one tabledb subcommand.
type Command struct {
	// Flags are the command's own flags. Global flags (--db, --friendly, ...)
	// are parsed before the command name and never reach this set.
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "insert <table> <json>...".
	Usage string

	// Group places the command under a heading in "tabledb help".
	Group string

	// Short is the one-line description in the command list.
	Short string

	// Long is shown by "tabledb <cmd> --help". Defaults to Short.
	Long string

	// Examples are full command lines shown in the command's help.
	Examples []string

	// Exec runs the command with the positional arguments left after flags.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine is the command's entry in the command list.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-34s %s", c.Usage, c.Short)
}

// PrintHelp writes the command's help to stdout.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: tabledb", c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsages())
	}

	if len(c.Examples) > 0 {
		o.Println()
		o.Println("Examples:")

		for _, ex := range c.Examples {
			o.Println("  tabledb " + ex)
		}
	}
}

// Run parses args and executes the command, returning the exit code. Errors
// are written to stderr; a flag error also shows the command's usage line.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln("usage: tabledb", c.Usage)

		return 2
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}

// groupedHelp renders the command list under group headings.
func groupedHelp(cmds []*Command) string {
	var b strings.Builder

	for _, group := range groupOrder {
		var lines []string

		for _, cmd := range cmds {
			if cmd.Group == group {
				lines = append(lines, cmd.HelpLine())
			}
		}

		if len(lines) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s:\n%s\n", group, strings.Join(lines, "\n"))
	}

	return b.String()
}
