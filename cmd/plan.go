package cmd

import (
	"fmt"
	"io"
	"os"

	"video2voice/format"
	"video2voice/segment"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
)

var (
	planDuration float64
	planBitrate  int
	planMaxSize  string
	planFormat   string
	planName     string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show how a recording would be split",
	Long: `Estimate the audio size of a recording and print the parts it would be
split into. Nothing is downloaded or encoded.

Example:
  video2voice plan --duration 7200 --bitrate 192 --max-size 100MB`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Float64Var(&planDuration, "duration", 0, "Duration in seconds (required)")
	planCmd.Flags().IntVar(&planBitrate, "bitrate", 0, "Bitrate in kbps (default AUDIO_BITRATE)")
	planCmd.Flags().StringVar(&planMaxSize, "max-size", "", "Maximum size per part, e.g. 200MB (default MAX_OUTPUT_SIZE)")
	planCmd.Flags().StringVar(&planFormat, "format", "", "Output format: mp3 or wav (default AUDIO_FORMAT)")
	planCmd.Flags().StringVar(&planName, "name", "audio", "Base name used for the part file names")
	planCmd.MarkFlagRequired("duration")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	bitrate := planBitrate
	if bitrate <= 0 {
		bitrate = cfg.AudioBitrate
	}

	maxBytes := cfg.MaxOutputSize
	if planMaxSize != "" {
		var v datasize.ByteSize
		if err := v.UnmarshalText([]byte(planMaxSize)); err != nil {
			return fmt.Errorf("invalid --max-size %q: %w", planMaxSize, err)
		}
		maxBytes = int64(v.Bytes())
	}

	codecName := planFormat
	if codecName == "" {
		codecName = cfg.AudioFormat
	}
	codec, err := segment.ParseCodec(codecName)
	if err != nil {
		return err
	}

	return RunPlan(os.Stdout, planName, planDuration, maxBytes, bitrate, codec)
}

// RunPlan prints the size estimate and part layout for one recording.
func RunPlan(output io.Writer, name string, duration float64, maxBytes int64, bitrateKbps int, codec segment.Codec) error {
	segs, err := segment.Plan(duration, maxBytes, bitrateKbps, codec)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Duration: %s\n", format.Duration(duration))
	fmt.Fprintf(output, "Estimated size: %s (limit %s per part)\n", format.Size(segment.EstimateSize(duration, bitrateKbps, codec)), format.Size(maxBytes))
	fmt.Fprintf(output, "Parts: %d\n", len(segs))
	for _, s := range segs {
		fmt.Fprintf(output, "  %s  %s - %s\n", segment.FileName(name, s.Index, len(segs), codec), format.Duration(s.Start), format.Duration(s.End))
	}
	return nil
}
