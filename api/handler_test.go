package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video2voice/config"
	"video2voice/fetch"
	"video2voice/ffmpeg"
	"video2voice/files"
	"video2voice/segment"
	"video2voice/task"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct{}

func (mockFetcher) Resolve(ctx context.Context, url string) (fetch.Info, error) {
	return fetch.Info{Title: "Clip", Duration: 30}, nil
}

func (mockFetcher) Fetch(ctx context.Context, req fetch.Request, progress chan<- fetch.Progress) (fetch.Result, error) {
	progress <- fetch.Progress{Phase: fetch.PhaseDownloading, Percent: "50%"}
	progress <- fetch.Progress{Phase: fetch.PhaseFinished}
	name := req.Name
	if name == "" {
		name = "Clip"
	}
	path := filepath.Join(req.OutputDir, name+"."+req.Codec.Ext())
	return fetch.Result{Path: path}, os.WriteFile(path, []byte("audio"), 0o644)
}

type mockMedia struct {
	probeErr error
}

func (m mockMedia) Probe(ctx context.Context, path string) (float64, error) {
	if m.probeErr != nil {
		return 0, m.probeErr
	}
	return 30, nil
}

func (m mockMedia) Extract(ctx context.Context, input string, segs []segment.Segment, outDir, base string, codec segment.Codec, bitrateKbps int) ([]ffmpeg.Output, error) {
	var out []ffmpeg.Output
	for _, s := range segs {
		name := segment.FileName(base, s.Index, len(segs), codec)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("encoded"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, ffmpeg.Output{Filename: name, SizeBytes: 7, Start: s.Start, End: s.End})
	}
	return out, nil
}

type testEnv struct {
	router *gin.Engine
	tm     *task.Manager
	store  *files.Store
	cfg    *config.Config
}

func setupTestRouter(t *testing.T, media task.Media) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		TempDir:       t.TempDir(),
		AudioFormat:   "mp3",
		AudioBitrate:  192,
		MaxOutputSize: 200 * 1024 * 1024,
		MaxInputSize:  10 * 1024 * 1024,
		CORSOrigin:    "*",
	}
	store, err := files.NewStore(t.TempDir(), "/api/v1/files")
	require.NoError(t, err)
	tm, err := task.NewManager(cfg, task.NewMemoryRegistry(), mockFetcher{}, media, store)
	require.NoError(t, err)
	return &testEnv{router: SetupRouter(tm, store, cfg), tm: tm, store: store, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndCORS(t *testing.T) {
	env := setupTestRouter(t, mockMedia{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleCreateJobs(t *testing.T) {
	env := setupTestRouter(t, mockMedia{})

	body := `{"jobs":[{"source":"https://example.com/a","filename":"first"},{"source":"  "},{"source":"https://example.com/b","format":"wav"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	ids := resp["task_ids"].([]any)
	require.Len(t, ids, 2)

	env.tm.Wait()

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+ids[0].(string), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var row task.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
	assert.Equal(t, task.StatusCompleted, row.Status)
	assert.Equal(t, []string{"first.mp3"}, row.Files)
	assert.Equal(t, 1, row.Segments)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var all map[string]task.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)
	assert.Equal(t, "wav", all[ids[1].(string)].Format)

	w = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/clear", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["removed"])
}

func TestHandleCreateJobs_Rejects(t *testing.T) {
	env := setupTestRouter(t, mockMedia{})

	for name, body := range map[string]string{
		"empty list":  `{"jobs":[]}`,
		"no source":   `{"jobs":[{"source":""},{"filename":"x"}]}`,
		"bad format":  `{"jobs":[{"source":"https://example.com/a","format":"ogg"}]}`,
		"broken json": `{"jobs":[`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := env.do(req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
	assert.Empty(t, env.tm.Snapshot())
}

func TestHandleGetJob_NotFound(t *testing.T) {
	env := setupTestRouter(t, mockMedia{})
	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/task_42", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleFiles(t *testing.T) {
	env := setupTestRouter(t, mockMedia{})
	content := bytes.Repeat([]byte("0123456789"), 100)
	require.NoError(t, os.WriteFile(filepath.Join(env.store.Dir(), "song.mp3"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.store.Dir(), "notes.txt"), []byte("x"), 0o644))

	t.Run("list", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, float64(1), resp["count"])
		entry := resp["files"].([]any)[0].(map[string]any)
		assert.Equal(t, "song.mp3", entry["name"])
		assert.Equal(t, "/api/v1/files/song.mp3", entry["url"])
	})

	t.Run("full download", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/song.mp3", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, content, w.Body.Bytes())
	})

	t.Run("range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files/song.mp3", nil)
		req.Header.Set("Range", "bytes=990-2000")
		w := env.do(req)
		assert.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "bytes 990-999/1000", w.Header().Get("Content-Range"))
		assert.Equal(t, "10", w.Header().Get("Content-Length"))
		assert.Equal(t, content[990:], w.Body.Bytes())
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files/song.mp3", nil)
		req.Header.Set("Range", "bytes=2000-")
		w := env.do(req)
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
		assert.Equal(t, "bytes */1000", w.Header().Get("Content-Range"))
	})

	t.Run("errors", func(t *testing.T) {
		cases := map[string]int{
			"/api/v1/files/..%5Csong.mp3": http.StatusBadRequest,
			"/api/v1/files/notes.txt":     http.StatusBadRequest,
			"/api/v1/files/missing.mp3":   http.StatusNotFound,
		}
		for path, code := range cases {
			w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, code, w.Code, path)
			assert.NotEmpty(t, decode(t, w)["error"], path)
		}
	})
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/local-extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleLocalExtract(t *testing.T) {
	t.Run("converts the upload", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{})
		w := env.do(multipartUpload(t, map[string]string{"format": "wav", "filename": "lecture"}, "video.mp4", []byte("fake video")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode(t, w)
		assert.Equal(t, float64(1), resp["count"])
		entry := resp["files"].([]any)[0].(map[string]any)
		assert.Equal(t, "lecture.wav", entry["name"])
		assert.FileExists(t, filepath.Join(env.store.Dir(), "lecture.wav"))

		staged, _ := os.ReadDir(env.cfg.TempDir)
		assert.Empty(t, staged)
		assert.Empty(t, env.tm.Snapshot())
	})

	t.Run("name defaults to the upload name", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{})
		w := env.do(multipartUpload(t, nil, "holiday.mov", []byte("fake video")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.FileExists(t, filepath.Join(env.store.Dir(), "holiday.mp3"))
	})

	t.Run("missing file", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{})
		w := env.do(multipartUpload(t, map[string]string{"format": "mp3"}, "", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad format", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{})
		w := env.do(multipartUpload(t, map[string]string{"format": "flac"}, "v.mp4", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too large", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{})
		env.cfg.MaxInputSize = 16
		w := env.do(multipartUpload(t, nil, "v.mp4", bytes.Repeat([]byte("x"), 2<<20)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("no readable duration", func(t *testing.T) {
		env := setupTestRouter(t, mockMedia{probeErr: ffmpeg.ErrProbeFailed})
		w := env.do(multipartUpload(t, nil, "v.mp4", []byte("x")))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
