package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

var (
	errUnknownCommand = errors.New("unknown command")
	errNotLoggedIn    = errors.New("login first")
)

// execIface is the command surface the REPL needs. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	dispatch(ctx context.Context, name string, args []string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is done. Errors from commands are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("crm %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(helpText(a.isLoggedIn()))
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if err := a.dispatch(ctx, name, args); err != nil {
				if errors.Is(err, errUnknownCommand) {
					printlnFn("Unknown command:", name)
					continue
				}
				printlnFn("Error:", err)
			}
		}
	}
}

func helpText(loggedIn bool) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range commandNames() {
		c := commands[name]
		if c.auth && !loggedIn {
			continue
		}
		fmt.Fprintf(&b, "  %-34s %s\n", c.usage, c.help)
	}
	b.WriteString("  help                               show this list\n")
	b.WriteString("  exit | quit                        leave the program")
	return b.String()
}
