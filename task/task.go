package task

import (
	"errors"
	"time"
)

// ErrInvalidInput is returned for job requests that can never run.
var ErrInvalidInput = errors.New("invalid input")

type Status string

const (
	StatusPending     Status = "pending"
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusConverting  Status = "converting"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Task struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"` // requested base name, may be empty
	Format   string `json:"format"`
	Status   Status `json:"status"`

	Progress        string `json:"progress"` // raw percent text from the downloader
	ProgressPercent int    `json:"progress_percent"`
	Message         string `json:"message"`
	Title           string `json:"title"`
	Error           string `json:"error,omitempty"`

	Speed           string `json:"speed"`
	ETA             string `json:"eta"`
	DownloadedBytes int64  `json:"downloaded_bytes"`
	DownloadedStr   string `json:"downloaded_str"`
	TotalBytes      int64  `json:"total_bytes"`
	TotalStr        string `json:"total_str"`

	ElapsedTime float64 `json:"elapsed_time"`
	ElapsedStr  string  `json:"elapsed_str"`

	Segments int      `json:"segments"`
	Files    []string `json:"files"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (t Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

func (t Task) clone() Task {
	c := t
	if t.Files != nil {
		c.Files = append([]string(nil), t.Files...)
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return c
}

// JobRequest is one entry of a batch submission.
type JobRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
}
