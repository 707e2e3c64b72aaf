package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"video2voice/ffmpeg"
	"video2voice/format"
	"video2voice/segment"

	"github.com/spf13/cobra"
)

var (
	extractSourcePath string
	extractFormat     string
	extractName       string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract audio from a local video file",
	Long: `Extract the audio track of a local video into the output directory,
splitting it into parts when it would exceed MAX_OUTPUT_SIZE.

Example:
  video2voice extract --source "/path/to/lecture.mp4" --format wav --name "Lecture 1"`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractSourcePath, "source", "", "Path to source video file (required)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "Output format: mp3 or wav (default AUDIO_FORMAT)")
	extractCmd.Flags().StringVar(&extractName, "name", "", "Base name for the output files (default: source name)")
	extractCmd.MarkFlagRequired("source")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}

	codecName := extractFormat
	if codecName == "" {
		codecName = cfg.AudioFormat
	}
	codec, err := segment.ParseCodec(codecName)
	if err != nil {
		return err
	}

	return RunExtractWithDependencies(cmd.Context(), svc.manager, extractSourcePath, extractName, codec, os.Stdout)
}

// LocalExtractor converts a file on disk into audio outputs.
type LocalExtractor interface {
	ExtractLocal(ctx context.Context, input, base string, codec segment.Codec) ([]ffmpeg.Output, error)
}

// RunExtractWithDependencies runs the extract command with injected dependencies (for testing)
func RunExtractWithDependencies(ctx context.Context, extractor LocalExtractor, sourcePath, name string, codec segment.Codec, output io.Writer) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("source file not found: %s", sourcePath)
	}
	if info.IsDir() {
		return fmt.Errorf("source is a directory: %s", sourcePath)
	}

	fmt.Fprintf(output, "Extracting %s audio from %s...\n", codec.Ext(), sourcePath)

	outputs, err := extractor.ExtractLocal(ctx, sourcePath, name, codec)
	if err != nil {
		return err
	}

	for _, o := range outputs {
		fmt.Fprintf(output, "  %s  %s  [%s - %s]\n", o.Filename, format.Size(o.SizeBytes), format.Duration(o.Start), format.Duration(o.End))
	}
	fmt.Fprintf(output, "Successfully created %d file(s)\n", len(outputs))
	return nil
}
