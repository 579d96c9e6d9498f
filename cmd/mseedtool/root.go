package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/codec"
	"github.com/hupe1980/mseed/record"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

const (
	cliName        = "mseedtool"
	cliDescription = "the command-line tool for miniSEED data"
)

type globalFlags struct {
	logLevel  string
	output    string
	jsonCodec string
	codec     codec.Codec
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           cliName,
		Short:         cliDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, ok := codec.ByName(g.jsonCodec)
			if !ok {
				return fmt.Errorf("--json-codec must be json or go-json, got %q", g.jsonCodec)
			}
			g.codec = c
			switch g.output {
			case "table", "json":
				return nil
			}
			return fmt.Errorf("--output must be table or json, got %q", g.output)
		},
	}
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&g.output, "output", "o", "table", "output format (table, json)")
	cmd.PersistentFlags().StringVar(&g.jsonCodec, "json-codec", codec.Default.Name(), "JSON codec for output and extra headers (json, go-json)")

	cmd.AddCommand(
		newTracesCommand(g),
		newStatsCommand(g),
		newWindowCommand(g),
		newSineCommand(g),
		newArchiveCommand(g),
	)
	return cmd
}

func (g *globalFlags) logger(w io.Writer) (*mseed.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return mseed.NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (g *globalFlags) isJSON() bool { return strings.EqualFold(g.output, "json") }

func (g *globalFlags) writeJSON(w io.Writer, v any) error {
	b, err := g.codec.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func renderTable(w io.Writer, header table.Row, rows []table.Row, footer table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)
	if footer != nil {
		t.AppendFooter(footer)
	}
	configs := make([]table.ColumnConfig, len(header))
	for i := range header {
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignCenter}
	}
	t.SetColumnConfigs(configs)
	t.Render()
}

func formatTime(t mseed.NSTime) string {
	if t == mseed.NSTUnset {
		return "-"
	}
	return record.FormatTime(t, record.SubSecondNanoMicro)
}

// parseWindow builds a window from optional --start and --end values.
func parseWindow(start, end string) (mseed.Window, error) {
	win := mseed.Window{Earliest: mseed.NSTUnset, Latest: mseed.NSTUnset}
	var err error
	if start != "" {
		if win.Earliest, err = mseed.ParseTime(start); err != nil {
			return win, fmt.Errorf("--start: %w", err)
		}
	}
	if end != "" {
		if win.Latest, err = mseed.ParseTime(end); err != nil {
			return win, fmt.Errorf("--end: %w", err)
		}
	}
	return win, nil
}
