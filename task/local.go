package task

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"video2voice/ffmpeg"
	"video2voice/files"
	"video2voice/segment"
)

// ExtractLocal converts a file already on disk, splitting it as needed.
// The work is synchronous and leaves no row in the registry.
func (m *Manager) ExtractLocal(ctx context.Context, input, base string, codec segment.Codec) ([]ffmpeg.Output, error) {
	if codec == "" {
		codec = m.codec
	}
	if !codec.Valid() {
		return nil, fmt.Errorf("%w: unsupported audio format %q", ErrInvalidInput, codec)
	}

	base = files.SanitizeBaseName(base)
	if base == "" {
		base = files.SanitizeBaseName(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	}
	if base == "" {
		base = "audio"
	}

	duration, err := m.media.Probe(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", segment.ErrInvalidDuration, err)
	}
	segs, err := segment.Plan(duration, m.cfg.MaxOutputSize, m.bitrate, codec)
	if err != nil {
		return nil, err
	}

	log.Printf("Extracting %s from %s in %d part(s)", codec.Ext(), filepath.Base(input), len(segs))
	return m.media.Extract(ctx, input, segs, m.store.Dir(), base, codec, m.bitrate)
}
