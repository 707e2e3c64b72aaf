//go:build integration

package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"video2voice/fetch"
	"video2voice/ffmpeg"
	"video2voice/segment"
)

// fakeSource is what the fake downloader knows about one URL.
type fakeSource struct {
	title    string
	duration float64
	err      error
}

// fakeFetcher stands in for yt-dlp: it writes a placeholder audio file and
// reports the source duration back through the media fake.
type fakeFetcher struct {
	mu      sync.Mutex
	sources map[string]fakeSource
	media   *fakeMedia
}

func newFakeFetcher(media *fakeMedia) *fakeFetcher {
	return &fakeFetcher{sources: make(map[string]fakeSource), media: media}
}

func (f *fakeFetcher) set(url string, src fakeSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[url] = src
}

func (f *fakeFetcher) lookup(url string) (fakeSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.sources[url]
	if !ok {
		return fakeSource{}, errors.New("ERROR: Unsupported URL: " + url)
	}
	return src, src.err
}

func (f *fakeFetcher) Resolve(ctx context.Context, url string) (fetch.Info, error) {
	src, err := f.lookup(url)
	if err != nil {
		return fetch.Info{}, err
	}
	return fetch.Info{Title: src.title, Duration: src.duration}, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetch.Request, progress chan<- fetch.Progress) (fetch.Result, error) {
	src, err := f.lookup(req.URL)
	if err != nil {
		return fetch.Result{}, err
	}
	progress <- fetch.Progress{Phase: fetch.PhaseDownloading, Percent: "50.0%", Speed: "1.00MiB/s", ETA: "00:03"}
	progress <- fetch.Progress{Phase: fetch.PhaseFinished, Percent: "100%"}

	name := req.Name
	if name == "" {
		name = src.title
	}
	path := filepath.Join(req.OutputDir, name+"."+req.Codec.Ext())
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return fetch.Result{}, err
	}
	f.media.setDuration(path, src.duration)
	return fetch.Result{Path: path}, nil
}

// fakeMedia answers probes from recorded durations and writes one small
// file per planned segment.
type fakeMedia struct {
	mu        sync.Mutex
	durations map[string]float64
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{durations: make(map[string]float64)}
}

func (m *fakeMedia) setDuration(path string, d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[path] = d
}

func (m *fakeMedia) Probe(ctx context.Context, path string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.durations[path]
	if !ok {
		return 0, ffmpeg.ErrProbeFailed
	}
	return d, nil
}

func (m *fakeMedia) Extract(ctx context.Context, input string, segs []segment.Segment, outDir, base string, codec segment.Codec, bitrateKbps int) ([]ffmpeg.Output, error) {
	out := make([]ffmpeg.Output, 0, len(segs))
	for _, s := range segs {
		name := segment.FileName(base, s.Index, len(segs), codec)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("part"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, ffmpeg.Output{Filename: name, SizeBytes: 4, Start: s.Start, End: s.End})
	}
	return out, nil
}
