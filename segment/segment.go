// Package segment estimates encoded audio size and plans the equal-length
// time ranges an oversized output is split into.
package segment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned when a plan is requested for a
// non-positive duration.
var ErrInvalidDuration = errors.New("invalid duration")

// Codec is an output audio encoding.
type Codec string

const (
	MP3 Codec = "mp3"
	WAV Codec = "wav"
)

// Uncompressed output parameters.
const (
	PCMSampleRate = 44100
	PCMBitDepth   = 16
	PCMChannels   = 2
)

// ParseCodec accepts "mp3" or "wav" in any case.
func ParseCodec(s string) (Codec, error) {
	c := Codec(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported audio format %q (expected mp3 or wav)", s)
	}
	return c, nil
}

func (c Codec) Valid() bool {
	return c == MP3 || c == WAV
}

// Ext returns the file extension without the dot.
func (c Codec) Ext() string {
	return string(c)
}

// Segment is one planned time range, in seconds.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s Segment) Length() float64 {
	return s.End - s.Start
}

// EstimateSize returns the expected output size in bytes.
func EstimateSize(duration float64, bitrateKbps int, codec Codec) int64 {
	if duration <= 0 {
		return 0
	}
	if codec == WAV {
		return int64(float64(PCMSampleRate*PCMBitDepth*PCMChannels) * duration / 8)
	}
	return int64(float64(bitrateKbps) * 1024 * duration / 8)
}

// Plan splits duration into the fewest equal segments whose estimated size
// stays under maxBytes. A non-positive maxBytes disables splitting.
func Plan(duration float64, maxBytes int64, bitrateKbps int, codec Codec) ([]Segment, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	estimate := EstimateSize(duration, bitrateKbps, codec)
	if maxBytes <= 0 || estimate <= maxBytes {
		return []Segment{{Index: 1, Start: 0, End: duration}}, nil
	}

	count := int(estimate/maxBytes) + 1
	length := duration / float64(count)
	segments := make([]Segment, count)
	for i := range segments {
		segments[i] = Segment{
			Index: i + 1,
			Start: float64(i) * length,
			End:   float64(i+1) * length,
		}
	}
	segments[count-1].End = duration
	return segments, nil
}

// FileName names the output for segment index (1-based) out of total.
func FileName(base string, index, total int, codec Codec) string {
	if total <= 1 {
		return base + "." + codec.Ext()
	}
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%s_part%0*d.%s", base, width, index, codec.Ext())
}
