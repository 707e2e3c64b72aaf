// Package fetch downloads remote media and decodes it to an audio file
// through an external downloader, streaming progress to the caller.
package fetch

import (
	"context"

	"video2voice/segment"
)

// Phase names the stage a progress event belongs to.
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	// PhaseFinished is sent once the transfer is done and the downloader
	// starts its own post-processing.
	PhaseFinished Phase = "finished"
)

// Progress is one telemetry event. The string fields are passed through as
// the downloader printed them and may be malformed.
type Progress struct {
	Phase           Phase
	Percent         string
	Speed           string
	ETA             string
	DownloadedBytes int64
	TotalBytes      int64
}

// Info is source metadata resolved before any bytes move.
type Info struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

type Request struct {
	URL string
	// Name is the base filename without extension. Empty means the
	// downloader substitutes the media title.
	Name        string
	OutputDir   string
	Codec       segment.Codec
	BitrateKbps int
}

// Result points at the produced audio file inside Request.OutputDir.
type Result struct {
	Path string
}

// Fetcher is the fetch/decode collaborator.
type Fetcher interface {
	Resolve(ctx context.Context, url string) (Info, error)
	// Fetch sends progress events until it returns. It never closes progress.
	Fetch(ctx context.Context, req Request, progress chan<- Progress) (Result, error)
}
