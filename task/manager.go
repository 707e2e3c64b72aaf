package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"video2voice/config"
	"video2voice/fetch"
	"video2voice/ffmpeg"
	"video2voice/files"
	"video2voice/format"
	"video2voice/segment"
)

const defaultBitrateKbps = 192

// Media probes and re-encodes downloaded audio.
type Media interface {
	Probe(ctx context.Context, path string) (float64, error)
	Extract(ctx context.Context, input string, segments []segment.Segment, outDir, base string, codec segment.Codec, bitrateKbps int) ([]ffmpeg.Output, error)
}

// Admission decides whether the host can take another job right now.
type Admission interface {
	Check() error
}

type Manager struct {
	cfg       *config.Config
	registry  Registry
	fetcher   fetch.Fetcher
	media     Media
	store     *files.Store
	admission Admission

	codec   segment.Codec
	bitrate int
	// sem is nil when concurrency is unbounded.
	sem chan struct{}

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithAdmission replaces the resource check run before each job.
func WithAdmission(a Admission) ManagerOption {
	return func(m *Manager) {
		m.admission = a
	}
}

func NewManager(cfg *config.Config, registry Registry, fetcher fetch.Fetcher, media Media, store *files.Store, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil || registry == nil || fetcher == nil || media == nil || store == nil {
		return nil, errors.New("task manager: missing dependency")
	}

	codec := segment.MP3
	if cfg.AudioFormat != "" {
		c, err := segment.ParseCodec(cfg.AudioFormat)
		if err != nil {
			return nil, fmt.Errorf("AUDIO_FORMAT: %w", err)
		}
		codec = c
	}
	bitrate := cfg.AudioBitrate
	if bitrate <= 0 {
		bitrate = defaultBitrateKbps
	}

	m := &Manager{
		cfg:       cfg,
		registry:  registry,
		fetcher:   fetcher,
		media:     media,
		store:     store,
		admission: ffmpeg.LimitsFromConfig(cfg),
		codec:     codec,
		bitrate:   bitrate,
		baseCtx:   context.Background(),
	}
	if cfg.MaxConcurrency > 0 {
		m.sem = make(chan struct{}, cfg.MaxConcurrency)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start sets the context jobs run under and starts the output cleanup loop
// when an output lifetime is configured.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	if m.sem != nil {
		log.Println("Task manager started. Concurrency limit:", cap(m.sem))
	} else {
		log.Println("Task manager started. Concurrency: unbounded")
	}
	if m.cfg.OutputLocalLifetime > 0 {
		go m.cleanupLoop(ctx)
	}
}

func (m *Manager) jobContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

// Submit validates req, registers a pending row and starts the job.
func (m *Manager) Submit(req JobRequest) (string, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return "", fmt.Errorf("%w: source is required", ErrInvalidInput)
	}
	codec, err := m.codecFor(req.Format)
	if err != nil {
		return "", err
	}

	j := job{
		source: source,
		name:   files.SanitizeBaseName(req.Filename),
		codec:  codec,
	}
	id := m.registry.Create(Task{
		URL:      source,
		Filename: j.name,
		Format:   string(codec),
		Message:  "Waiting to start...",
	})
	log.Printf("Task %s submitted for %s", id, source)

	m.wg.Add(1)
	go m.run(m.jobContext(), id, j)
	return id, nil
}

func (m *Manager) codecFor(name string) (segment.Codec, error) {
	if strings.TrimSpace(name) == "" {
		return m.codec, nil
	}
	codec, err := segment.ParseCodec(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return codec, nil
}

// Wait blocks until every submitted job has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) Get(id string) (Task, bool) {
	return m.registry.Get(id)
}

func (m *Manager) Snapshot() map[string]Task {
	return m.registry.Snapshot()
}

func (m *Manager) ClearTerminal() int {
	n := m.registry.ClearTerminal()
	log.Printf("Cleared %d finished tasks", n)
	return n
}

type job struct {
	source string
	name   string
	codec  segment.Codec
}

func (m *Manager) run(ctx context.Context, id string, j job) {
	defer m.wg.Done()

	if m.sem != nil {
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-ctx.Done():
			m.fail(id, ctx.Err())
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Task %s panicked: %v", id, r)
			m.fail(id, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := m.process(ctx, id, j); err != nil {
		m.fail(id, err)
	}
}

func (m *Manager) process(ctx context.Context, id string, j job) error {
	if err := m.admission.Check(); err != nil {
		return err
	}

	m.registry.Mutate(id, func(t *Task) {
		t.Status = StatusStarting
		t.Message = "Fetching media info..."
	})
	info, err := m.fetcher.Resolve(ctx, j.source)
	if err != nil {
		return fmt.Errorf("could not resolve source: %w", err)
	}
	m.registry.Mutate(id, func(t *Task) {
		t.Title = info.Title
		t.Message = "Starting download: " + info.Title
	})

	res, err := m.download(ctx, id, j)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	m.registry.Mutate(id, func(t *Task) {
		t.Status = StatusProcessing
		t.Message = "Checking file size..."
	})
	outputs, err := m.postProcess(ctx, id, res.Path, info.Duration, j.codec)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		names = append(names, o.Filename)
	}
	m.registry.Mutate(id, func(t *Task) {
		t.Status = StatusCompleted
		t.ProgressPercent = 100
		t.Progress = "100%"
		t.Segments = len(outputs)
		t.Files = names
		if len(outputs) > 1 {
			t.Message = fmt.Sprintf("Done, split into %d parts", len(outputs))
		} else {
			t.Message = "Done"
		}
	})
	log.Printf("Task %s completed: %d file(s)", id, len(outputs))
	return nil
}

// download runs the fetcher while a single goroutine folds its progress
// events into the row, in order.
func (m *Manager) download(ctx context.Context, id string, j job) (fetch.Result, error) {
	progress := make(chan fetch.Progress, 16)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for p := range progress {
			m.applyProgress(id, j.codec, p)
		}
	}()
	defer func() {
		close(progress)
		<-consumed
	}()

	return m.fetcher.Fetch(ctx, fetch.Request{
		URL:         j.source,
		Name:        j.name,
		OutputDir:   m.store.Dir(),
		Codec:       j.codec,
		BitrateKbps: m.bitrate,
	}, progress)
}

// postProcess splits the downloaded file when it exceeds the output size
// ceiling. The unsplit original is removed once every part exists.
func (m *Manager) postProcess(ctx context.Context, id, path string, reported float64, codec segment.Codec) ([]ffmpeg.Output, error) {
	duration, err := m.media.Probe(ctx, path)
	if err != nil || duration <= 0 {
		log.Printf("Task %s: probe gave no duration (%v), using reported %.1fs", id, err, reported)
		duration = reported
	}

	segs, err := segment.Plan(duration, m.cfg.MaxOutputSize, m.bitrate, codec)
	if err != nil {
		return nil, err
	}

	if len(segs) == 1 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("downloaded file is missing: %w", err)
		}
		return []ffmpeg.Output{{
			Filename:  filepath.Base(path),
			SizeBytes: info.Size(),
			Start:     0,
			End:       duration,
		}}, nil
	}

	m.registry.Mutate(id, func(t *Task) {
		t.Message = fmt.Sprintf("Splitting into %d parts...", len(segs))
	})
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputs, err := m.media.Extract(ctx, path, segs, m.store.Dir(), base, codec, m.bitrate)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		log.Printf("Warning: could not remove unsplit file %s: %v", path, err)
	}
	return outputs, nil
}

func (m *Manager) applyProgress(id string, codec segment.Codec, p fetch.Progress) {
	switch p.Phase {
	case fetch.PhaseDownloading:
		m.registry.Mutate(id, func(t *Task) {
			if t.Status != StatusStarting && t.Status != StatusDownloading {
				return
			}
			t.Status = StatusDownloading
			t.Progress = p.Percent
			t.ProgressPercent = ParsePercent(p.Percent)
			t.Speed = format.Speed(p.Speed)
			t.ETA = format.ETA(p.ETA)
			t.DownloadedBytes = p.DownloadedBytes
			t.DownloadedStr = format.Size(p.DownloadedBytes)
			t.TotalBytes = p.TotalBytes
			t.TotalStr = format.Size(p.TotalBytes)
			t.Message = "Downloading: " + t.Title
		})
	case fetch.PhaseFinished:
		m.registry.Mutate(id, func(t *Task) {
			t.Status = StatusConverting
			t.Progress = "100%"
			t.ProgressPercent = 100
			t.Message = fmt.Sprintf("Converting to %s...", strings.ToUpper(codec.Ext()))
		})
	}
}

func (m *Manager) fail(id string, err error) {
	log.Printf("Task %s failed: %v", id, err)
	m.registry.Mutate(id, func(t *Task) {
		t.Status = StatusError
		t.Error = err.Error()
		t.Message = "Error: " + err.Error()
		t.Segments = 0
		t.Files = nil
	})
}

var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// ParsePercent reads downloader percent text such as " 42.5%". Anything
// without a trailing percent sign yields 0.
func ParsePercent(raw string) int {
	s := strings.TrimSpace(reANSI.ReplaceAllString(raw, ""))
	if !strings.HasSuffix(s, "%") {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// cleanupLoop periodically removes old output files
func (m *Manager) cleanupLoop(ctx context.Context) {
	interval := m.cfg.OutputLocalLifetime / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup loop shutting down.")
			return
		case <-ticker.C:
			if _, err := m.store.RemoveOlderThan(m.cfg.OutputLocalLifetime); err != nil {
				log.Printf("Warning: output cleanup failed: %v", err)
			}
		}
	}
}
