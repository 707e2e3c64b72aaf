//go:build integration

package steps

import (
	"os"

	"video2voice/api"
	"video2voice/config"
	"video2voice/files"
	"video2voice/task"

	"github.com/gin-gonic/gin"
)

// appEnv is a fully wired service backed by fakes and a temp directory.
type appEnv struct {
	root    string
	cfg     *config.Config
	store   *files.Store
	fetcher *fakeFetcher
	media   *fakeMedia
	manager *task.Manager
	router  *gin.Engine
}

func newAppEnv(maxOutputSize int64) (*appEnv, error) {
	gin.SetMode(gin.TestMode)

	root, err := os.MkdirTemp("", "v2v-features-")
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{
		OutputDir:     root + "/mp3",
		TempDir:       root,
		AudioFormat:   "mp3",
		AudioBitrate:  192,
		MaxOutputSize: maxOutputSize,
		CORSOrigin:    "*",
	}
	store, err := files.NewStore(cfg.OutputDir, "/api/v1/files")
	if err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	media := newFakeMedia()
	fetcher := newFakeFetcher(media)
	manager, err := task.NewManager(cfg, task.NewMemoryRegistry(), fetcher, media, store)
	if err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	return &appEnv{
		root:    root,
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		media:   media,
		manager: manager,
		router:  api.SetupRouter(manager, store, cfg),
	}, nil
}

func (e *appEnv) close() {
	e.manager.Wait()
	os.RemoveAll(e.root)
}
