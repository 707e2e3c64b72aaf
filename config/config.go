// video2voice/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	BaseURL             string        `mapstructure:"BASE"`
	OutputDir           string        `mapstructure:"OUTPUT_DIR"`
	TempDir             string        `mapstructure:"TEMP_DIR"`
	FFBin               string        `mapstructure:"FF_BIN"`
	FFProbeBin          string        `mapstructure:"FF_PROBE_BIN"`
	FFExtraArgs         string        `mapstructure:"FF_EXTRA_ARGS"`
	YTDLPBin            string        `mapstructure:"YTDLP_BIN"`
	YTDLPExtraArgs      string        `mapstructure:"YTDLP_EXTRA_ARGS"`
	AudioFormat         string        `mapstructure:"AUDIO_FORMAT"`
	AudioBitrate        int           `mapstructure:"AUDIO_BITRATE"`
	MaxOutputSize       int64         `mapstructure:"MAX_OUTPUT_SIZE"`
	MaxInputSize        int64         `mapstructure:"MAX_INPUT_SIZE"`
	MaxConcurrency      int           `mapstructure:"MAX_CONCURRENCY"`
	OutputLocalLifetime time.Duration `mapstructure:"OUTPUT_LOCAL_LIFETIME"`
	ThrottleCPU         float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem     int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk    int64         `mapstructure:"THROTTLE_FREEDISK"`
	CORSOrigin          string        `mapstructure:"CORS_ORIGIN"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to int64s for byte sizes.
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

// Load reads defaults, an optional YAML file and VIDEO2VOICE_* environment
// variables. An empty file means the standard search paths are used.
func Load(file string) (*Config, error) {
	vp := viper.New()

	vp.SetDefault("PORT", "5001")
	vp.SetDefault("BASE", "")
	vp.SetDefault("OUTPUT_DIR", "./downloads/mp3")
	vp.SetDefault("TEMP_DIR", "")
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FF_PROBE_BIN", "ffprobe")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("YTDLP_BIN", "yt-dlp")
	vp.SetDefault("YTDLP_EXTRA_ARGS", "")
	vp.SetDefault("AUDIO_FORMAT", "mp3")
	vp.SetDefault("AUDIO_BITRATE", 192)
	vp.SetDefault("MAX_OUTPUT_SIZE", "200MB")
	vp.SetDefault("MAX_INPUT_SIZE", "2GB")
	vp.SetDefault("MAX_CONCURRENCY", 0)
	vp.SetDefault("OUTPUT_LOCAL_LIFETIME", "0s")
	vp.SetDefault("THROTTLE_CPU", 0.0)
	vp.SetDefault("THROTTLE_FREEMEM", 0)
	vp.SetDefault("THROTTLE_FREEDISK", 0)
	vp.SetDefault("CORS_ORIGIN", "*")

	if file != "" {
		vp.SetConfigFile(file)
	} else {
		vp.SetConfigName("video2voice_config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
		vp.AddConfigPath("/etc/video2voice/")
	}

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("VIDEO2VOICE")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
