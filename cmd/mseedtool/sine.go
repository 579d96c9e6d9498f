package main

import (
	"fmt"

	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/codec"
	"github.com/hupe1980/mseed/record"
	"github.com/hupe1980/mseed/testutil"
	"github.com/spf13/cobra"
)

func newSineCommand(g *globalFlags) *cobra.Command {
	var (
		sid          string
		rate         float64
		samples      int
		amplitude    float64
		period       int
		start        string
		encoding     string
		version      uint8
		recordLength int
		overwrite    bool
		timeQuality  int
	)
	cmd := &cobra.Command{
		Use:   "sine OUT",
		Short: "write a synthetic sine wave as miniSEED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := mseed.ParseSourceID(sid)
			if err != nil {
				return err
			}
			t0, err := mseed.ParseTime(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			enc, err := record.ParseEncoding(encoding)
			if err != nil {
				return err
			}
			logger, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var data mseed.Samples
			switch enc.SampleType() {
			case record.SampleTypeFloat32:
				data = testutil.SineFloat32(samples, amplitude, period)
			case record.SampleTypeFloat64:
				data = testutil.SineFloat64(samples, amplitude, period)
			default:
				data = testutil.SineInt32(samples, amplitude, period)
			}

			l := mseed.New(mseed.WithLogger(logger))
			if _, err := l.AddData(id, data, rate, t0, 1); err != nil {
				return err
			}
			var extra []byte
			if timeQuality >= 0 {
				if extra, err = timeQualityHeaders(g.codec, timeQuality); err != nil {
					return err
				}
			}
			stats, err := l.WriteFile(args[0], overwrite, mseed.PackOptions{
				FormatVersion: version,
				RecordLength:  recordLength,
				Encoding:      enc,
				RemovePacked:  true,
				ExtraHeaders:  extra,
			})
			if err != nil {
				return err
			}

			if g.isJSON() {
				return g.writeJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records, %d samples, %d bytes to %s\n",
				stats.Records, stats.Samples, stats.Bytes, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&sid, "sid", "FDSN:XX_TEST__B_H_Z", "source identifier")
	cmd.Flags().Float64Var(&rate, "rate", 100, "sample rate in Hz")
	cmd.Flags().IntVar(&samples, "samples", 6000, "number of samples")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 1000, "sine amplitude")
	cmd.Flags().IntVar(&period, "period", 100, "sine period in samples")
	cmd.Flags().StringVar(&start, "start", "2024-01-01T00:00:00Z", "time of the first sample")
	cmd.Flags().StringVar(&encoding, "encoding", "steim2", "data encoding")
	cmd.Flags().Uint8Var(&version, "format-version", 3, "miniSEED format version (2 or 3)")
	cmd.Flags().IntVar(&recordLength, "record-length", 4096, "maximum record length")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	cmd.Flags().IntVar(&timeQuality, "time-quality", -1, "FDSN timing quality 0-100 stored in v3 extra headers, -1 for none")
	return cmd
}

// timeQualityHeaders builds the FDSN extra headers carrying a timing quality.
func timeQualityHeaders(c codec.Codec, quality int) ([]byte, error) {
	if quality > 100 {
		return nil, fmt.Errorf("--time-quality must be at most 100, got %d", quality)
	}
	return codec.MarshalObject(c, map[string]any{
		"FDSN": map[string]any{
			"Time": map[string]any{"Quality": quality},
		},
	})
}
