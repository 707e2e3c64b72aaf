// video2voice/config/config_test.go
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"video2voice/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("VIDEO2VOICE_PORT", "")
		t.Setenv("VIDEO2VOICE_MAX_CONCURRENCY", "")
		t.Setenv("VIDEO2VOICE_MAX_OUTPUT_SIZE", "")
		t.Setenv("VIDEO2VOICE_AUDIO_BITRATE", "")
		t.Setenv("VIDEO2VOICE_OUTPUT_LOCAL_LIFETIME", "")

		cfg, err := config.Load("")
		require.NoError(t, err)

		assert.Equal(t, "5001", cfg.Port)
		assert.Equal(t, 0, cfg.MaxConcurrency)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "ffprobe", cfg.FFProbeBin)
		assert.Equal(t, "yt-dlp", cfg.YTDLPBin)
		assert.Equal(t, "mp3", cfg.AudioFormat)
		assert.Equal(t, 192, cfg.AudioBitrate)
		assert.Equal(t, int64(200*1024*1024), cfg.MaxOutputSize)
		assert.Equal(t, int64(2*1024*1024*1024), cfg.MaxInputSize)
		assert.Equal(t, time.Duration(0), cfg.OutputLocalLifetime)
		assert.Equal(t, "*", cfg.CORSOrigin)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("VIDEO2VOICE_PORT", "9999")
		t.Setenv("VIDEO2VOICE_MAX_CONCURRENCY", "4")
		t.Setenv("VIDEO2VOICE_MAX_OUTPUT_SIZE", "25MB")
		t.Setenv("VIDEO2VOICE_AUDIO_BITRATE", "128")
		t.Setenv("VIDEO2VOICE_OUTPUT_LOCAL_LIFETIME", "2h")

		cfg, err := config.Load("")
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.Equal(t, int64(25*1024*1024), cfg.MaxOutputSize)
		assert.Equal(t, 128, cfg.AudioBitrate)
		assert.Equal(t, 2*time.Hour, cfg.OutputLocalLifetime)
	})

	t.Run("reads an explicit yaml file", func(t *testing.T) {
		t.Setenv("VIDEO2VOICE_OUTPUT_DIR", "")
		t.Setenv("VIDEO2VOICE_AUDIO_FORMAT", "")

		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("OUTPUT_DIR: /srv/audio\nAUDIO_FORMAT: wav\n"), 0o644))

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/audio", cfg.OutputDir)
		assert.Equal(t, "wav", cfg.AudioFormat)
	})

	t.Run("fails on a missing explicit file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
