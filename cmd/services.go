package cmd

import (
	"fmt"
	"log"

	"video2voice/config"
	"video2voice/fetch"
	"video2voice/ffmpeg"
	"video2voice/files"
	"video2voice/task"
)

// filesRoute is where the API serves the output directory.
const filesRoute = "/api/v1/files"

type services struct {
	store   *files.Store
	media   *ffmpeg.Runner
	fetcher *fetch.YTDLP
	manager *task.Manager
}

// newServices wires the production collaborators from cfg.
func newServices(cfg *config.Config) (*services, error) {
	store, err := files.NewStore(cfg.OutputDir, filesRoute)
	if err != nil {
		return nil, err
	}

	media, err := ffmpeg.NewRunner(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg runner: %w", err)
	}
	if err := media.VerifyInstalled(); err != nil {
		log.Printf("Warning: %v", err)
	}

	fetcher, err := fetch.NewYTDLP(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize yt-dlp: %w", err)
	}
	if err := fetcher.VerifyInstalled(); err != nil {
		log.Printf("Warning: %v", err)
	}

	manager, err := task.NewManager(cfg, task.NewMemoryRegistry(), fetcher, media, store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task manager: %w", err)
	}

	return &services{store: store, media: media, fetcher: fetcher, manager: manager}, nil
}
