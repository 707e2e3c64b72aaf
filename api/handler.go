package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"video2voice/config"
	"video2voice/ffmpeg"
	"video2voice/files"
	"video2voice/format"
	"video2voice/segment"
	"video2voice/task"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/shortuuid/v4"
)

// multipartOverhead is the slack allowed on top of MAX_INPUT_SIZE for form
// fields and part headers.
const multipartOverhead = 1 << 20

type Handler struct {
	taskManager *task.Manager
	store       *files.Store
	cfg         *config.Config
}

func NewHandler(tm *task.Manager, store *files.Store, cfg *config.Config) *Handler {
	return &Handler{
		taskManager: tm,
		store:       store,
		cfg:         cfg,
	}
}

type JobsRequest struct {
	Jobs []task.JobRequest `json:"jobs"`
}

// handleCreateJobs starts one download task per entry that carries a source.
func (h *Handler) handleCreateJobs(c *gin.Context) {
	var req JobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Jobs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No jobs provided"})
		return
	}

	// Validate the whole batch before starting anything.
	valid := make([]task.JobRequest, 0, len(req.Jobs))
	for _, j := range req.Jobs {
		if strings.TrimSpace(j.Source) == "" {
			continue
		}
		if j.Format != "" {
			if _, err := segment.ParseCodec(j.Format); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		valid = append(valid, j)
	}
	if len(valid) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid source provided"})
		return
	}

	ids := make([]string, 0, len(valid))
	for _, j := range valid {
		id, err := h.taskManager.Submit(j)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, task.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error(), "task_ids": ids})
			return
		}
		ids = append(ids, id)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"task_ids": ids,
		"message":  fmt.Sprintf("Started %d download task(s)", len(ids)),
	})
}

// handleListJobs returns every task keyed by id.
func (h *Handler) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskManager.Snapshot())
}

// handleGetJob retrieves the status of a single task.
func (h *Handler) handleGetJob(c *gin.Context) {
	taskID := c.Param("taskId")
	t, found := h.taskManager.Get(taskID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) handleClearJobs(c *gin.Context) {
	n := h.taskManager.ClearTerminal()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": n,
		"message": fmt.Sprintf("Cleared %d finished task(s)", n),
	})
}

func (h *Handler) handleListFiles(c *gin.Context) {
	entries, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range entries {
		entries[i].URL = h.buildDownloadURL(entries[i].Name)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   entries,
		"count":   len(entries),
	})
}

// buildDownloadURL returns the download link for name, absolute when BASE
// is configured.
func (h *Handler) buildDownloadURL(name string) string {
	path := h.store.URL(name)
	if h.cfg.BaseURL == "" {
		return path
	}
	return strings.TrimSuffix(h.cfg.BaseURL, "/") + path
}

// handleGetFile streams an output file, honouring Range requests so players
// can seek.
func (h *Handler) handleGetFile(c *gin.Context) {
	filename := c.Param("filename")
	path, info, err := h.store.Resolve(filename)
	switch {
	case errors.Is(err, files.ErrInvalidFilename), errors.Is(err, files.ErrInvalidFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, files.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := files.Serve(c.Writer, path, info.Size(), files.ContentType(filename), c.GetHeader("Range")); err != nil {
		// Headers are usually gone by now; a client hanging up mid-stream lands here.
		log.Printf("Serving %s: %v", filename, err)
	}
}

// handleLocalExtract converts an uploaded video to audio before responding.
func (h *Handler) handleLocalExtract(c *gin.Context) {
	if h.cfg.MaxInputSize > 0 {
		if c.Request.ContentLength > h.cfg.MaxInputSize+multipartOverhead {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxInputSize+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	if h.cfg.MaxInputSize > 0 && fh.Size > h.cfg.MaxInputSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
		return
	}

	codecName := c.PostForm("format")
	if codecName == "" {
		codecName = h.cfg.AudioFormat
	}
	codec, err := segment.ParseCodec(codecName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tempDir := h.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	staged := filepath.Join(tempDir, "upload_"+shortuuid.New()+filepath.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, staged); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Could not store upload: %v", err)})
		return
	}
	defer os.Remove(staged)

	base := c.PostForm("filename")
	if strings.TrimSpace(base) == "" {
		base = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}

	outputs, err := h.taskManager.ExtractLocal(c.Request.Context(), staged, base, codec)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, task.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, segment.ErrInvalidDuration):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   h.describeOutputs(outputs),
		"count":   len(outputs),
	})
}

type outputFile struct {
	Name    string  `json:"name"`
	Size    int64   `json:"size"`
	SizeStr string  `json:"size_str"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	URL     string  `json:"url"`
}

func (h *Handler) describeOutputs(outputs []ffmpeg.Output) []outputFile {
	out := make([]outputFile, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, outputFile{
			Name:    o.Filename,
			Size:    o.SizeBytes,
			SizeStr: format.Size(o.SizeBytes),
			Start:   o.Start,
			End:     o.End,
			URL:     h.buildDownloadURL(o.Filename),
		})
	}
	return out
}
