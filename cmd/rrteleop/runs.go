package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"

	"github.com/gwillem/rrteleop/pkg/record"
)

type RunsCommand struct{}

func (c *RunsCommand) Execute(args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	runs, err := record.NewStore(cfg.Record.Dir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tHZ\tTICKS\tUNDERFLOWS\tSAMPLES\tDEVICE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%d\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Hz,
			run.Ticks,
			run.Underflows,
			run.Samples,
			run.Device,
		)
	}
	return w.Flush()
}

type PlotCommand struct {
	Columns []string `long:"column" short:"k" description:"Column to plot (repeatable, default joints and tip)"`
	Height  int      `long:"height" default:"10" description:"Plot height in rows"`
	Args    struct {
		RunID string `positional-arg-name:"run-id" required:"yes"`
	} `positional-args:"yes"`
}

func (c *PlotCommand) Execute(args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store := record.NewStore(cfg.Record.Dir)
	meta, err := store.Load(c.Args.RunID)
	if err != nil {
		return err
	}
	trace, err := store.LoadTrace(c.Args.RunID)
	if err != nil {
		return err
	}
	if len(trace.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("device: %s\n", meta.Device)
	fmt.Printf("samples: %d\n\n", len(trace.Rows))

	columns := c.Columns
	if len(columns) == 0 {
		for _, name := range trace.Columns {
			if strings.HasPrefix(name, "q") {
				columns = append(columns, name)
			}
		}
		columns = append(columns, "x", "y")
	}

	for _, name := range columns {
		data, err := trace.Column(name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(c.Height),
			asciigraph.Width(80),
			asciigraph.Caption(plotCaption(name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func plotCaption(column string) string {
	switch {
	case strings.HasPrefix(column, "dq"):
		return fmt.Sprintf("%s joint velocity [rad/s]", column)
	case strings.HasPrefix(column, "q"):
		return fmt.Sprintf("%s joint angle [rad]", column)
	case column == "x" || column == "y":
		return fmt.Sprintf("tip %s [m]", column)
	}
	return column
}
