package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"video2voice/config"
	"video2voice/ffmpeg"
	"video2voice/segment"

	"github.com/lithammer/shortuuid/v4"
)

// titleTemplate lets yt-dlp substitute the media title as the file name.
const titleTemplate = "%(title)s"

const progressPrefix = "v2v|"

var progressTemplate = "download:" + progressPrefix + strings.Join([]string{
	"%(progress._percent_str)s",
	"%(progress._speed_str)s",
	"%(progress._eta_str)s",
	"%(progress.downloaded_bytes)s",
	"%(progress.total_bytes)s",
	"%(progress.total_bytes_estimate)s",
}, "|")

// containerExts are intermediate files yt-dlp may leave before or instead
// of the post-processed audio.
var containerExts = map[string]bool{
	".webm": true, ".m4a": true, ".opus": true, ".ogg": true,
	".mp4": true, ".aac": true, ".mkv": true, ".flac": true,
}

// YTDLP implements Fetcher with the yt-dlp CLI.
type YTDLP struct {
	bin            string
	ffmpegLocation string
	tempDir        string
	extraArgs      []string
	runner         LineRunner
}

type Option func(*YTDLP)

// WithLineRunner sets a custom runner (for testing).
func WithLineRunner(r LineRunner) Option {
	return func(y *YTDLP) {
		y.runner = r
	}
}

func NewYTDLP(cfg *config.Config, opts ...Option) (*YTDLP, error) {
	y := &YTDLP{
		bin:     "yt-dlp",
		tempDir: os.TempDir(),
		runner:  ExecLineRunner{},
	}
	if cfg != nil {
		if cfg.YTDLPBin != "" {
			y.bin = cfg.YTDLPBin
		}
		if cfg.TempDir != "" {
			y.tempDir = cfg.TempDir
		}
		// Only pin ffmpeg when the operator pointed at a specific binary.
		if cfg.FFBin != "" && cfg.FFBin != "ffmpeg" {
			y.ffmpegLocation = cfg.FFBin
		}
		if cfg.YTDLPExtraArgs != "" {
			args, err := ffmpeg.SplitCommand(cfg.YTDLPExtraArgs)
			if err != nil {
				return nil, err
			}
			if err := ffmpeg.ValidateArgs(args); err != nil {
				return nil, fmt.Errorf("YTDLP_EXTRA_ARGS: %w", err)
			}
			y.extraArgs = args
		}
	}
	for _, opt := range opts {
		opt(y)
	}
	return y, nil
}

// VerifyInstalled checks that the yt-dlp binary resolves on PATH.
func (y *YTDLP) VerifyInstalled() error {
	if _, err := exec.LookPath(y.bin); err != nil {
		return fmt.Errorf("binary not found or not in PATH: %s", y.bin)
	}
	return nil
}

// Resolve reads title and duration without downloading.
func (y *YTDLP) Resolve(ctx context.Context, url string) (Info, error) {
	if strings.TrimSpace(url) == "" {
		return Info{}, fmt.Errorf("source URL is required")
	}
	args := append([]string{"-J", "--no-playlist", "--skip-download"}, y.extraArgs...)
	args = append(args, url)

	out, err := y.runner.Output(ctx, y.bin, args...)
	if err != nil {
		return Info{}, err
	}
	if len(out) == 0 {
		return Info{}, fmt.Errorf("yt-dlp returned empty output")
	}

	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return Info{}, fmt.Errorf("decode yt-dlp metadata: %w", err)
	}
	return info, nil
}

// Fetch downloads into a private work directory, then moves the decoded
// audio file into req.OutputDir.
func (y *YTDLP) Fetch(ctx context.Context, req Request, progress chan<- Progress) (Result, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Result{}, fmt.Errorf("source URL is required")
	}
	if !req.Codec.Valid() {
		return Result{}, fmt.Errorf("unsupported audio format %q", req.Codec)
	}

	workDir := filepath.Join(y.tempDir, "v2v_"+shortuuid.New())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("could not create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	name := titleTemplate
	if req.Name != "" {
		name = strings.ReplaceAll(req.Name, "%", "%%")
	}

	args := y.downloadArgs(req, filepath.Join(workDir, name+".%(ext)s"))

	var mu sync.Mutex
	finished := false
	emit := func(p Progress) {
		if progress == nil {
			return
		}
		select {
		case progress <- p:
		case <-ctx.Done():
		}
	}
	onLine := func(stream OutputStream, line string) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := parseProgressLine(line); ok {
			emit(p)
			return
		}
		if !finished && isPostprocessLine(line) {
			finished = true
			emit(Progress{Phase: PhaseFinished, Percent: "100%"})
		}
	}

	log.Printf("Running %s for %s", y.bin, req.URL)
	if err := y.runner.Stream(ctx, y.bin, args, onLine); err != nil {
		return Result{}, err
	}
	if !finished {
		emit(Progress{Phase: PhaseFinished, Percent: "100%"})
	}

	produced, err := discoverOutput(workDir, req.Codec)
	if err != nil {
		return Result{}, err
	}
	dest := filepath.Join(req.OutputDir, filepath.Base(produced))
	if err := moveFile(produced, dest); err != nil {
		return Result{}, fmt.Errorf("could not move %s to output directory: %w", filepath.Base(produced), err)
	}
	return Result{Path: dest}, nil
}

func (y *YTDLP) downloadArgs(req Request, outTemplate string) []string {
	quality := "192K"
	if req.BitrateKbps > 0 {
		quality = fmt.Sprintf("%dK", req.BitrateKbps)
	}
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", req.Codec.Ext(),
		"--audio-quality", quality,
		"--no-playlist",
		"--newline",
		"--progress-template", progressTemplate,
		"-o", outTemplate,
	}
	if y.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegLocation)
	}
	args = append(args, y.extraArgs...)
	return append(args, req.URL)
}

var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

func parseProgressLine(line string) (Progress, bool) {
	line = strings.TrimSpace(reANSI.ReplaceAllString(line, ""))
	if !strings.HasPrefix(line, progressPrefix) {
		return Progress{}, false
	}
	fields := strings.Split(strings.TrimPrefix(line, progressPrefix), "|")
	for len(fields) < 6 {
		fields = append(fields, "")
	}

	total := parseBytes(fields[4])
	if total <= 0 {
		total = parseBytes(fields[5])
	}
	return Progress{
		Phase:           PhaseDownloading,
		Percent:         strings.TrimSpace(fields[0]),
		Speed:           strings.TrimSpace(fields[1]),
		ETA:             strings.TrimSpace(fields[2]),
		DownloadedBytes: parseBytes(fields[3]),
		TotalBytes:      total,
	}, true
}

func parseBytes(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f)
}

func isPostprocessLine(line string) bool {
	l := strings.TrimSpace(line)
	return strings.HasPrefix(l, "[ExtractAudio]") || strings.HasPrefix(l, "[FFmpegExtractAudio]")
}

// discoverOutput finds the decoded audio file yt-dlp left in dir. When only
// an intermediate container survived, post-processing did not run.
func discoverOutput(dir string, codec segment.Codec) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	want := "." + codec.Ext()
	var matches, intermediates []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch {
		case ext == want:
			matches = append(matches, e.Name())
		case containerExts[ext]:
			intermediates = append(intermediates, e.Name())
		}
	}

	if len(matches) == 0 {
		if len(intermediates) > 0 {
			return "", fmt.Errorf("yt-dlp left %s but no %s file; is ffmpeg available to yt-dlp?", strings.Join(intermediates, ", "), want)
		}
		return "", fmt.Errorf("yt-dlp produced no %s file", want)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0]), nil
}

func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	// across filesystems
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
