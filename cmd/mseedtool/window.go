package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/mseed"
	"github.com/spf13/cobra"
)

func newWindowCommand(g *globalFlags) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "window IN OUT",
		Short: "copy the records of IN inside a time window to OUT, trimming boundary records",
		Long:  "Use - for standard input or output.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			win, err := parseWindow(start, end)
			if err != nil {
				return err
			}
			logger, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			var out io.Writer = cmd.OutOrStdout()
			var file *os.File
			if args[1] != "-" {
				if file, err = os.Create(args[1]); err != nil {
					return err
				}
				defer func() { _ = file.Close() }()
				out = file
			}

			stats, err := mseed.NewTrimmer(mseed.WithLogger(logger)).WindowStream(in, out, win)
			if err != nil {
				return err
			}
			if file != nil {
				if err := file.Close(); err != nil {
					return err
				}
			}

			if g.isJSON() && args[1] != "-" {
				return g.writeJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "records in %d, out %d (trimmed %d, skipped %d), %d bytes\n",
				stats.RecordsIn, stats.RecordsOut, stats.Trimmed, stats.Skipped, stats.BytesOut)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "earliest sample time to keep")
	cmd.Flags().StringVar(&end, "end", "", "latest sample time to keep")
	return cmd
}
