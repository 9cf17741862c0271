// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/choria-io/fisk"
	"github.com/choria-io/materialize"
	"github.com/choria-io/materialize/catalog"
	"github.com/choria-io/materialize/internal/console"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
)

var (
	target  string
	debug   bool
	version string
)

func main() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	app := fisk.New("materialize", "Writes the generator management backend sources")
	app.Version(version)

	app.Help = `
Places the generator management backend security configuration and request
and response classes below a target directory.

Missing directories are created and existing files are overwritten.
`
	app.Flag("debug", "Enables debug logging").BoolVar(&debug)

	generate := app.Command("generate", "Writes all artifacts into a target directory").Action(generateAction)
	generate.Arg("target", "The directory to write the artifacts into").Envar("MATERIALIZE_TARGET").Required().StringVar(&target)

	app.Command("list", "Lists the artifacts that will be written").Action(listAction)

	app.MustParseWithUsage(os.Args[1:])
}

func generateAction(_ *fisk.ParseContext) error {
	entries, err := catalog.Default()
	if err != nil {
		return err
	}

	return generate(os.Stdout, console.NewStdout(debug), target, entries)
}

func generate(w io.Writer, out *console.Console, target string, entries []materialize.Artifact) error {
	summary, err := materialize.Run(target, entries,
		materialize.WithLogger(out),
		materialize.WithProgress(func(p materialize.Progress) {
			out.Notice("{green}Created{/green} %s", p.Group)
		}),
	)

	var failure *materialize.EntryFailure
	switch {
	case errors.As(err, &failure):
		return fmt.Errorf("failed after writing %d of %d artifacts into %s: %w", summary.Count(), len(entries), summary.Root, err)
	case err != nil:
		return err
	}

	fmt.Fprintln(w)

	tbl := newTable(w, fmt.Sprintf("Wrote %d artifacts into %s", summary.Count(), summary.Root), "Group", "Path")
	for _, a := range summary.Written {
		tbl.AppendRow(table.Row{a.Group, a.Path})
	}
	tbl.Render()

	return nil
}

func listAction(_ *fisk.ParseContext) error {
	entries, err := catalog.Default()
	if err != nil {
		return err
	}

	list(os.Stdout, entries)

	return nil
}

func list(w io.Writer, entries []materialize.Artifact) {
	tbl := newTable(w, fmt.Sprintf("%d artifacts in %d groups", len(entries), len(catalog.Groups(entries))), "Group", "Path", "Size")
	for _, e := range entries {
		tbl.AppendRow(table.Row{e.Group, e.Path, len(materialize.Normalize(e.Content))})
	}
	tbl.Render()
}

func newTable(w io.Writer, title string, headers ...any) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleRounded)
	tbl.SetTitle(title)
	tbl.AppendHeader(table.Row(headers))

	return tbl
}
