// Package files manages the directory of realized audio files: lookup with
// traversal protection, listing, age-based cleanup and range-aware serving.
package files

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"video2voice/format"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrNotFound        = errors.New("file not found")
	ErrInvalidFileType = errors.New("invalid file type")
)

// contentTypes lists the servable extensions.
var contentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
}

// ContentType returns the MIME type for an audio file name, or "" if the
// extension is not servable.
func ContentType(name string) string {
	return contentTypes[strings.ToLower(filepath.Ext(name))]
}

// Entry describes one file in the output directory.
type Entry struct {
	Name              string  `json:"name"`
	Size              int64   `json:"size"`
	SizeStr           string  `json:"size_str"`
	Modified          string  `json:"modified"`
	ModifiedTimestamp float64 `json:"modified_timestamp"`
	URL               string  `json:"url"`
}

type Store struct {
	dir string
	// urlPrefix is joined with the escaped file name to build Entry.URL.
	urlPrefix string
}

// NewStore creates dir if needed.
func NewStore(dir, urlPrefix string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	return &Store{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// URL returns the download path for name.
func (s *Store) URL(name string) string {
	return s.urlPrefix + "/" + url.PathEscape(name)
}

// Resolve validates name and returns its path and info. Names carrying a path
// separator are rejected before touching the filesystem.
func (s *Store) Resolve(name string) (string, os.FileInfo, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", nil, ErrInvalidFilename
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", nil, ErrNotFound
	}
	if ContentType(name) == "" {
		return "", nil, ErrInvalidFileType
	}
	return path, info, nil
}

// List returns servable audio files, newest first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || ContentType(de.Name()) == "" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime()
		out = append(out, Entry{
			Name:              de.Name(),
			Size:              info.Size(),
			SizeStr:           format.Size(info.Size()),
			Modified:          mtime.Format("2006-01-02 15:04:05"),
			ModifiedTimestamp: float64(mtime.UnixNano()) / 1e9,
			URL:               s.URL(de.Name()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModifiedTimestamp > out[j].ModifiedTimestamp
	})
	return out, nil
}

// RemoveOlderThan deletes audio files last modified more than maxAge ago.
func (s *Store) RemoveOlderThan(maxAge time.Duration) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := float64(time.Now().Add(-maxAge).UnixNano()) / 1e9
	removed := 0
	for _, e := range entries {
		if e.ModifiedTimestamp >= cutoff {
			continue
		}
		log.Printf("Cleaning up old output file: %s", e.Name)
		if err := os.Remove(filepath.Join(s.dir, e.Name)); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not remove %s: %v", e.Name, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// SanitizeBaseName turns a user-chosen name into a safe base file name.
// Path separators become underscores and a trailing audio extension is dropped.
func SanitizeBaseName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_", "\x00", "").Replace(name)
	if ContentType(name) != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.Trim(name, ". ")
	return name
}
