package files

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const chunkSize = 8192

// RangeResult classifies a Range header against a file size.
type RangeResult int

const (
	// RangeNone means serve the whole file: no header, or one that does not parse.
	RangeNone RangeResult = iota
	RangeSatisfiable
	RangeUnsatisfiable
)

// ByteRange is an inclusive byte interval.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRange reads a single "bytes=start-end" range. Either bound may be
// omitted; an omitted start reads from 0 and an omitted end reads to EOF.
func ParseRange(header string, size int64) (ByteRange, RangeResult) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, RangeNone
	}

	rng := strings.TrimPrefix(header, "bytes=")
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return ByteRange{}, RangeNone
	}

	r := ByteRange{Start: 0, End: size - 1}
	if s := strings.TrimSpace(parts[0]); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return ByteRange{}, RangeNone
		}
		r.Start = v
	}
	if e := strings.TrimSpace(parts[1]); e != "" {
		v, err := strconv.ParseInt(e, 10, 64)
		if err != nil || v < 0 {
			return ByteRange{}, RangeNone
		}
		r.End = v
	}

	if r.Start >= size {
		return ByteRange{}, RangeUnsatisfiable
	}
	if r.End >= size {
		r.End = size - 1
	}
	if r.End < r.Start {
		return ByteRange{}, RangeNone
	}
	return r, RangeSatisfiable
}

// Serve writes path to w, honouring a single byte range.
func Serve(w http.ResponseWriter, path string, size int64, contentType, rangeHeader string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "public, max-age=3600")

	r, result := ParseRange(rangeHeader, size)
	switch result {
	case RangeUnsatisfiable:
		h.Del("Cache-Control")
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		_, err := io.WriteString(w, "Range Not Satisfiable")
		return err

	case RangeSatisfiable:
		if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
			return err
		}
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size))
		h.Set("Content-Length", strconv.FormatInt(r.Length(), 10))
		w.WriteHeader(http.StatusPartialContent)
		_, err := io.CopyBuffer(w, io.LimitReader(f, r.Length()), make([]byte, chunkSize))
		return err
	}

	h.Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	_, err = io.CopyBuffer(w, f, make([]byte, chunkSize))
	return err
}
