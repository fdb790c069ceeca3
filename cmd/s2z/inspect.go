package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"s2z/bundle"
)

// inspectBundle prints bundle metadata and entry list to stdout.
func inspectBundle(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := cmd.Args().Get(0)
	if len(name) == 0 {
		return errors.New("no bundle file has been specified")
	}

	info, err := bundle.Inspect(name)
	if err != nil {
		return err
	}

	fmt.Printf("Bundle: %s\n", name)
	if info.MainPath != "" {
		fmt.Printf("Main document: %s\n", info.MainPath)
	}

	keys := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, info.Metadata[k])
	}

	fmt.Printf("Entries: %d\n", len(info.Entries))
	if !cmd.Bool("list") {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range info.Entries {
		title := e.Title
		if title != "" {
			title = " (" + title + ")"
		}
		fmt.Fprintf(w, "  %s\t%d%s\n", e.Path, e.Size, title)
	}
	return w.Flush()
}
