// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package console writes human readable notices and log lines for the CLI.
//
// Messages may carry color markup such as {green}text{/green}, it is rendered
// as ANSI colors when writing to a terminal and removed otherwise so piped
// output stays plain text.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	terminal "golang.org/x/term"
)

// Console writes notices and implements the materialize Logger interface
type Console struct {
	out   io.Writer
	color bool
	debug bool
}

// New creates a console writing to out, color is used only when requested
func New(out io.Writer, color bool, debug bool) *Console {
	return &Console{out: out, color: color, debug: debug}
}

// NewStdout creates a console for standard output, using color when it is a terminal
func NewStdout(debug bool) *Console {
	return New(os.Stdout, IsTerminal(os.Stdout), debug)
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return terminal.IsTerminal(int(f.Fd()))
}

// Notice writes a single line with markup applied
func (c *Console) Notice(format string, v ...any) {
	fmt.Fprintln(c.out, c.Markup(fmt.Sprintf(format, v...)))
}

// Debugf logs only in debug mode
func (c *Console) Debugf(format string, v ...any) {
	if !c.debug {
		return
	}

	c.Notice("{hiblack}"+format+"{/hiblack}", v...)
}

// Infof logs only in debug mode, notices are the user facing output of a run
func (c *Console) Infof(format string, v ...any) {
	if !c.debug {
		return
	}

	c.Notice(format, v...)
}

// Markup renders color markup for this console
func (c *Console) Markup(input string) string {
	return colorMarkup(input, c.color)
}

var colorMap = map[string]text.Color{
	"bold":      text.Bold,
	"black":     text.FgBlack,
	"red":       text.FgRed,
	"green":     text.FgGreen,
	"yellow":    text.FgYellow,
	"blue":      text.FgBlue,
	"magenta":   text.FgMagenta,
	"cyan":      text.FgCyan,
	"white":     text.FgWhite,
	"hiblack":   text.FgHiBlack,
	"hired":     text.FgHiRed,
	"higreen":   text.FgHiGreen,
	"hiyellow":  text.FgHiYellow,
	"hiblue":    text.FgHiBlue,
	"himagenta": text.FgHiMagenta,
	"hicyan":    text.FgHiCyan,
	"hiwhite":   text.FgHiWhite,
}

// colorMarkup replaces {color}text{/color} tags, innermost first, with ANSI colors or
// removes them when color is false. Unknown tag names are removed.
func colorMarkup(input string, color bool) string {
	result := input
	for {
		changed := false

		for i := 0; i < len(result); i++ {
			if result[i] != '{' {
				continue
			}

			closePos := strings.Index(result[i:], "}")
			if closePos == -1 {
				break
			}
			closePos += i

			name := result[i+1 : closePos]
			if name == "" || strings.ContainsAny(name, "/{") {
				continue
			}

			closeTag := "{/" + name + "}"
			closeStart := strings.Index(result[closePos+1:], closeTag)
			if closeStart == -1 {
				continue
			}
			closeStart += closePos + 1

			content := result[closePos+1 : closeStart]
			if hasOpeningTag(content) {
				continue
			}

			replacement := content
			if c, ok := colorMap[strings.ToLower(name)]; ok && color {
				replacement = text.Colors{c}.Sprint(content)
			}

			result = result[:i] + replacement + result[closeStart+len(closeTag):]
			changed = true
			break
		}

		if !changed {
			return result
		}
	}
}

// hasOpeningTag reports whether s holds a {name} tag that has a matching {/name}
func hasOpeningTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}

		end := strings.Index(s[i:], "}")
		if end == -1 {
			return false
		}

		name := s[i+1 : i+end]
		if name == "" || strings.ContainsAny(name, "/{") {
			continue
		}

		if strings.Contains(s[i+end+1:], "{/"+name+"}") {
			return true
		}
	}

	return false
}
