package cmd

import (
	"fmt"
	"os"

	"video2voice/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "video2voice",
	Short: "Extract audio from online or local videos",
	Long: `video2voice downloads videos with yt-dlp, extracts their audio with ffmpeg,
splits results that exceed MAX_OUTPUT_SIZE into parts, and serves the audio
library over HTTP with range support.

Run without a subcommand to start the HTTP API.

Example:
  video2voice serve --config ./video2voice_config.yaml
  video2voice extract --source lecture.mp4 --format mp3
  video2voice plan --duration 7200 --bitrate 192 --max-size 100MB`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./video2voice_config.yaml or /etc/video2voice/video2voice_config.yaml)")
}

func initConfig() {
	cfg, cfgErr = config.Load(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
