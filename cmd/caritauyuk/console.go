package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// console prints coloured command output.
type console struct {
	out    io.Writer
	bold   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
}

func newConsole(out io.Writer) *console {
	return &console{
		out:    out,
		bold:   color.New(color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		cyan:   color.New(color.FgCyan),
	}
}

func (c *console) success(format string, a ...any) {
	_, _ = c.green.Fprintf(c.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

func (c *console) warn(format string, a ...any) {
	_, _ = c.yellow.Fprintf(c.out, "! %s\n", fmt.Sprintf(format, a...))
}

func (c *console) fail(format string, a ...any) {
	_, _ = c.red.Fprintf(c.out, "✗ %s\n", fmt.Sprintf(format, a...))
}
