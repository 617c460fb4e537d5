package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"IndexLens/internal/model"
	"IndexLens/internal/pipeline"
	"IndexLens/internal/render"
)

type printCmd struct {
	format  string
	limit   int
	summary bool
}

func (*printCmd) Name() string     { return "print" }
func (*printCmd) Synopsis() string { return "run the pipeline once and print the table" }
func (*printCmd) Usage() string {
	return `indexlens print [-format text|markdown|json] [-limit n] [-summary]

  Runs the pipeline once and writes the joined table to stdout.
`
}

func (c *printCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "text", "Output format (text, markdown, json)")
	f.IntVar(&c.limit, "limit", 0, "Print at most n rows (0 prints all)")
	f.BoolVar(&c.summary, "summary", false, "Print per-symbol aggregates instead of rows")
}

func (c *printCmd) writer() (func(io.Writer, *model.TidyTable, render.Options) error, error) {
	switch c.format {
	case "text":
		return render.Text, nil
	case "markdown", "md":
		return render.Markdown, nil
	case "json":
		return render.JSON, nil
	}
	return nil, fmt.Errorf("unknown format %q", c.format)
}

func (c *printCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	write, err := c.writer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := newApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	res, err := a.pipeline.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Banner(pipeline.Banner(err)))
		return subcommands.ExitFailure
	}

	if c.summary {
		err = render.Summary(os.Stdout, res.Final)
	} else {
		err = write(os.Stdout, res.Final, render.Options{Limit: c.limit})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
