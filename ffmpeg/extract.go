package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video2voice/segment"
)

// ErrExtractionFailed is returned when a segment encode exits non-zero.
var ErrExtractionFailed = errors.New("audio extraction failed")

const defaultBitrateKbps = 192

// Output is a realized segment on disk.
type Output struct {
	Filename  string  `json:"name"`
	SizeBytes int64   `json:"size"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Extract encodes each segment of input into outDir, one ffmpeg run per
// segment. The first failure aborts the rest; files already written stay.
func (r *Runner) Extract(ctx context.Context, input string, segments []segment.Segment, outDir, base string, codec segment.Codec, bitrateKbps int) ([]Output, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments planned", ErrExtractionFailed)
	}
	if bitrateKbps <= 0 {
		bitrateKbps = defaultBitrateKbps
	}

	outputs := make([]Output, 0, len(segments))
	for _, seg := range segments {
		name := segment.FileName(base, seg.Index, len(segments), codec)
		outPath := filepath.Join(outDir, name)
		args := r.segmentArgs(input, seg, codec, bitrateKbps, outPath)

		log.Printf("Encoding segment %d/%d of %s -> %s", seg.Index, len(segments), filepath.Base(input), name)
		_, stderr, err := r.runner.Run(ctx, r.ffmpegPath, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v: %s", ErrExtractionFailed, seg.Index, err, tail(stderr, 2048))
		}

		info, err := os.Stat(outPath)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d produced no file: %v", ErrExtractionFailed, seg.Index, err)
		}
		outputs = append(outputs, Output{
			Filename:  name,
			SizeBytes: info.Size(),
			Start:     seg.Start,
			End:       seg.End,
		})
	}
	return outputs, nil
}

func (r *Runner) segmentArgs(input string, seg segment.Segment, codec segment.Codec, bitrateKbps int, outPath string) []string {
	args := []string{
		"-y",
		"-i", input,
		"-vn", // No video
		"-ar", strconv.Itoa(segment.PCMSampleRate),
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.Length()),
	}
	switch codec {
	case segment.WAV:
		args = append(args, "-acodec", "pcm_s16le")
	default:
		args = append(args, "-acodec", "libmp3lame", "-ab", fmt.Sprintf("%dk", bitrateKbps))
	}
	args = append(args, r.extraArgs...)
	return append(args, outPath)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// tail keeps the last n bytes of tool output, where ffmpeg puts the cause.
func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
