package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// ErrProbeFailed means no duration could be read from the prober.
var ErrProbeFailed = errors.New("duration probe failed")

var reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// Probe returns the media duration in seconds. The tool's exit status is
// ignored as long as one of its channels carries a duration.
func (r *Runner) Probe(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	stdout, stderr, runErr := r.runner.Run(ctx, r.ffprobePath, args...)

	if d, ok := parseProbeStdout(stdout); ok {
		return d, nil
	}
	if d, ok := parseDiagnosticDuration(stderr); ok {
		return d, nil
	}

	if runErr != nil {
		log.Printf("Probe of %s failed: %v", path, runErr)
		return 0, fmt.Errorf("%w: %v: %s", ErrProbeFailed, runErr, strings.TrimSpace(string(stderr)))
	}
	return 0, ErrProbeFailed
}

func parseProbeStdout(out []byte) (float64, bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		d, err := strconv.ParseFloat(line, 64)
		if err != nil || d <= 0 {
			return 0, false
		}
		return d, true
	}
	return 0, false
}

func parseDiagnosticDuration(out []byte) (float64, bool) {
	m := reDuration.FindSubmatch(out)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(string(m[1]))
	mins, _ := strconv.Atoi(string(m[2]))
	sec, err := strconv.ParseFloat(string(m[3]), 64)
	if err != nil {
		return 0, false
	}
	d := float64(h*3600+mins*60) + sec
	if d <= 0 {
		return 0, false
	}
	return d, true
}
