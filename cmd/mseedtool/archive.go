package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/archive"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newArchiveCommand(g *globalFlags) *cobra.Command {
	sf := &storeFlags{}
	var (
		prefix  string
		ioLimit int64
		workers int
	)
	cmd := &cobra.Command{
		Use:   "archive sub-command",
		Short: "store and fetch day volumes in a blob store",
	}
	sf.register(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&prefix, "prefix", "", "volume name prefix inside the store")
	cmd.PersistentFlags().Int64Var(&ioLimit, "io-limit", 0, "store traffic limit in bytes per second")
	cmd.PersistentFlags().IntVar(&workers, "concurrency", 4, "volumes transferred at once")

	common := func(cmd *cobra.Command) ([]archive.Option, error) {
		logger, err := g.logger(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return []archive.Option{
			archive.WithPrefix(prefix),
			archive.WithLogger(logger),
			archive.WithIOLimit(ioLimit),
			archive.WithConcurrency(workers),
		}, nil
	}

	cmd.AddCommand(
		archivePutCommand(g, sf, common),
		archiveListCommand(g, sf, common),
		archiveGetCommand(sf, common),
	)
	return cmd
}

type optionsFunc func(*cobra.Command) ([]archive.Option, error)

func archivePutCommand(g *globalFlags, sf *storeFlags, common optionsFunc) *cobra.Command {
	var compression string
	cmd := &cobra.Command{
		Use:   "put FILE...",
		Short: "merge miniSEED files and store them as day volumes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := archive.ParseCompression(compression)
			if err != nil {
				return err
			}
			opts, err := common(cmd)
			if err != nil {
				return err
			}
			store, err := sf.open(cmd.Context())
			if err != nil {
				return err
			}

			l := mseed.New()
			if err := loadFiles(cmd.Context(), l, args, mseed.ReadOptions{UnpackData: true}); err != nil {
				return err
			}
			opts = append(opts,
				archive.WithCompression(comp),
				archive.WithPackOptions(mseed.PackOptions{FlushData: true, RemovePacked: true}),
			)
			stats, err := archive.NewWriter(store, opts...).Write(cmd.Context(), l)
			if err != nil {
				return err
			}

			if g.isJSON() {
				return g.writeJSON(cmd.OutOrStdout(), stats)
			}
			for _, name := range stats.Names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d volumes, %d records, %s stored (%s packed)\n",
				stats.Volumes, stats.Records, humanize.IBytes(uint64(stats.Bytes)), humanize.IBytes(uint64(stats.RawBytes)))
			return nil
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "zstd", "volume compression (none, lz4, zstd)")
	return cmd
}

func archiveQueryFlags(cmd *cobra.Command) func() (archive.Query, error) {
	var sid, start, end string
	cmd.Flags().StringVar(&sid, "sid", "", "source identifier")
	cmd.Flags().StringVar(&start, "start", "", "earliest time")
	cmd.Flags().StringVar(&end, "end", "", "latest time")
	return func() (archive.Query, error) {
		var q archive.Query
		if sid != "" {
			id, err := mseed.ParseSourceID(sid)
			if err != nil {
				return q, err
			}
			q.SourceID = id
		}
		win, err := parseWindow(start, end)
		if err != nil {
			return q, err
		}
		q.Window = win
		return q, nil
	}
}

func archiveListCommand(g *globalFlags, sf *storeFlags, common optionsFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "list stored volumes",
		Args:  cobra.NoArgs,
	}
	query := archiveQueryFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		q, err := query()
		if err != nil {
			return err
		}
		opts, err := common(cmd)
		if err != nil {
			return err
		}
		store, err := sf.open(cmd.Context())
		if err != nil {
			return err
		}
		vols, err := archive.NewReader(store, opts...).Volumes(cmd.Context(), q)
		if err != nil {
			return err
		}

		if g.isJSON() {
			return g.writeJSON(cmd.OutOrStdout(), vols)
		}
		rows := make([]table.Row, len(vols))
		for i, v := range vols {
			rows[i] = table.Row{v.SourceID, v.Day.Format("2006-002"), v.Seq, v.Compression, v.Name}
		}
		renderTable(cmd.OutOrStdout(),
			table.Row{"Source ID", "Day", "Seq", "Compression", "Name"},
			rows,
			table.Row{fmt.Sprintf("%d volumes", len(vols)), "", "", "", ""},
		)
		return nil
	}
	return cmd
}

func archiveGetCommand(sf *storeFlags, common optionsFunc) *cobra.Command {
	var recordLength int
	cmd := &cobra.Command{
		Use:   "get OUT",
		Short: "merge stored volumes into one miniSEED file, trimmed to --start/--end",
		Long:  "Use - to write to standard output.",
		Args:  cobra.ExactArgs(1),
	}
	query := archiveQueryFlags(cmd)
	cmd.Flags().IntVar(&recordLength, "record-length", 4096, "maximum record length")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		q, err := query()
		if err != nil {
			return err
		}
		opts, err := common(cmd)
		if err != nil {
			return err
		}
		store, err := sf.open(cmd.Context())
		if err != nil {
			return err
		}

		r := archive.NewReader(store, opts...)
		vols, err := r.Volumes(cmd.Context(), q)
		if err != nil {
			return err
		}
		l := mseed.New()
		if _, err := r.Load(cmd.Context(), l, vols, mseed.ReadOptions{UnpackData: true}); err != nil {
			return err
		}

		var packed bytes.Buffer
		if _, err := l.WriteTo(&packed, mseed.PackOptions{RecordLength: recordLength, RemovePacked: true}); err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		var file *os.File
		if args[0] != "-" {
			if file, err = os.Create(args[0]); err != nil {
				return err
			}
			defer func() { _ = file.Close() }()
			out = file
		}

		if q.Window.Earliest == mseed.NSTUnset && q.Window.Latest == mseed.NSTUnset {
			_, err = packed.WriteTo(out)
		} else {
			_, err = mseed.WindowStream(&packed, out, q.Window)
		}
		if err != nil {
			return err
		}
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return cmd
}
