package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/mseed"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type statsRow struct {
	SourceID   string   `json:"source_id"`
	Records    int      `json:"records"`
	Samples    int64    `json:"samples"`
	Bytes      int64    `json:"bytes"`
	Earliest   string   `json:"earliest"`
	Latest     string   `json:"latest"`
	SampleRate float64  `json:"sample_rate"`
	PubVersion uint8    `json:"pub_version"`
	Encodings  []string `json:"encodings"`
}

func newStatsCommand(g *globalFlags) *cobra.Command {
	var skipCRC bool
	cmd := &cobra.Command{
		Use:   "stats FILE...",
		Short: "summarize the records of miniSEED files per source id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			readers := make([]io.Reader, 0, len(args))
			for _, p := range args {
				f, err := os.Open(p)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				readers = append(readers, f)
			}

			st, err := mseed.CollectStats(io.MultiReader(readers...), mseed.ReadOptions{SkipCRC: skipCRC})
			if err != nil {
				return err
			}

			var rows []statsRow
			for _, s := range st.Sources() {
				encs := make([]string, len(s.Encodings))
				for i, e := range s.Encodings {
					encs[i] = e.String()
				}
				rows = append(rows, statsRow{
					SourceID:   s.SourceID.String(),
					Records:    s.Records,
					Samples:    s.Samples,
					Bytes:      s.Bytes,
					Earliest:   formatTime(s.Earliest),
					Latest:     formatTime(s.Latest),
					SampleRate: s.SampleRate,
					PubVersion: s.PubVersion,
					Encodings:  encs,
				})
			}

			if g.isJSON() {
				return g.writeJSON(cmd.OutOrStdout(), rows)
			}
			trows := make([]table.Row, len(rows))
			for i, r := range rows {
				trows[i] = table.Row{r.SourceID, r.Records, r.Samples, humanize.IBytes(uint64(r.Bytes)), r.Earliest, r.Latest, r.SampleRate, strings.Join(r.Encodings, ",")}
			}
			renderTable(cmd.OutOrStdout(),
				table.Row{"Source ID", "Records", "Samples", "Size", "Earliest", "Latest", "Rate", "Encoding"},
				trows,
				table.Row{fmt.Sprintf("%d sources", len(rows)), st.Records, st.Samples, humanize.IBytes(uint64(st.Bytes)), "", "", "", ""},
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipCRC, "skip-crc", false, "do not verify record checksums")
	return cmd
}
