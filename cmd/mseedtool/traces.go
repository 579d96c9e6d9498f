package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/hupe1980/mseed"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type traceRow struct {
	SourceID   string  `json:"source_id"`
	PubVersion uint8   `json:"pub_version"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	SampleRate float64 `json:"sample_rate"`
	Samples    int64   `json:"samples"`
	Type       string  `json:"sample_type,omitempty"`
}

func newTracesCommand(g *globalFlags) *cobra.Command {
	var (
		unpack     bool
		recordList bool
	)
	cmd := &cobra.Command{
		Use:   "traces FILE...",
		Short: "list the trace segments of miniSEED files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			l := mseed.New(mseed.WithLogger(logger))
			if err := loadFiles(cmd.Context(), l, args, mseed.ReadOptions{UnpackData: unpack, RecordList: recordList}); err != nil {
				return err
			}

			var rows []traceRow
			for t := range l.All() {
				for _, seg := range t.Segments() {
					row := traceRow{
						SourceID:   t.SourceID().String(),
						PubVersion: seg.PubVersion(),
						Start:      formatTime(seg.StartTime()),
						End:        formatTime(seg.EndTime()),
						SampleRate: seg.SampleRate(),
						Samples:    seg.SampleCount(),
					}
					if _, code := seg.SampleSizeType(); code != 0 {
						row.Type = string(code)
					}
					rows = append(rows, row)
				}
			}

			if g.isJSON() {
				return g.writeJSON(cmd.OutOrStdout(), rows)
			}
			trows := make([]table.Row, len(rows))
			var total int64
			for i, r := range rows {
				trows[i] = table.Row{r.SourceID, r.PubVersion, r.Start, r.End, r.SampleRate, r.Samples}
				total += r.Samples
			}
			renderTable(cmd.OutOrStdout(),
				table.Row{"Source ID", "Ver", "Start", "End", "Rate", "Samples"},
				trows,
				table.Row{fmt.Sprintf("%d traces", l.Len()), "", "", "", "", total},
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unpack, "unpack", false, "decode samples while reading")
	cmd.Flags().BoolVar(&recordList, "record-list", false, "keep a record list per segment")
	return cmd
}

// loadFiles reads files concurrently and merges them into l in argument order.
func loadFiles(ctx context.Context, l *mseed.TraceList, paths []string, opts mseed.ReadOptions) error {
	data := make([][]byte, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(p)
			data[i] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, b := range data {
		if _, err := l.ReadBuffer(b, opts); err != nil {
			return fmt.Errorf("%s: %w", paths[i], err)
		}
	}
	return nil
}
