package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/fetchmux/internal/platform"
)

// Quality presets for downloads
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualityAudio  QualityPreset = "audio"
)

// Settings keys
const (
	KeyDownloadDir     = "download_dir"
	KeyMaxParallel     = "max_parallel"
	KeyCooldownMS      = "cooldown_ms"
	KeyMaxCompleted    = "max_completed"
	KeyCompletedAgeHrs = "completed_max_age_hours"
	KeyQualityPreset   = "quality_preset"
	KeyListenAddr      = "listen_addr"
	KeyFFmpegPath      = "ffmpeg_path"
	KeyFFprobePath     = "ffprobe_path"
	KeyYtDlpPath       = "ytdlp_path"
	KeyFFmpegExtraArgs = "ffmpeg_extra_args"
)

// Default values
const (
	DefaultMaxParallel     = 2
	MinParallel            = 1
	MaxParallel            = 10
	DefaultCooldownMS      = 500
	DefaultMaxCompleted    = 100
	DefaultCompletedAgeHrs = 24
	DefaultQualityPreset   = QualityMedium
	DefaultListenAddr      = ":8432"

	ConfigName = "config"
	EnvPrefix  = "FETCHMUX"
)

// Settings is the resolved runtime configuration
type Settings struct {
	DownloadDir     string
	MaxParallel     int
	Cooldown        time.Duration
	MaxCompleted    int
	CompletedMaxAge time.Duration
	QualityPreset   QualityPreset
	ListenAddr      string
	FFmpegPath      string
	FFprobePath     string
	YtDlpPath       string
	FFmpegExtraArgs []string
}

// Init wires viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: a missing config file is fine, flags and env still apply.
func Init(root *cobra.Command) error {
	if cfgDir, err := configDir(); err == nil {
		_ = platform.CreateDirectoryIfNotExists(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.AddConfigPath(".")
	viper.SetConfigName(ConfigName) // supports config.{yaml|yml|json|toml}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if root != nil {
		_ = viper.BindPFlag(KeyDownloadDir, root.PersistentFlags().Lookup("download-dir"))
		_ = viper.BindPFlag(KeyMaxParallel, root.PersistentFlags().Lookup("max-parallel"))
		_ = viper.BindPFlag(KeyListenAddr, root.PersistentFlags().Lookup("listen-addr"))
		_ = viper.BindPFlag(KeyQualityPreset, root.PersistentFlags().Lookup("quality"))
	}

	_ = viper.ReadInConfig()

	return nil
}

func setDefaults() {
	viper.SetDefault(KeyMaxParallel, DefaultMaxParallel)
	viper.SetDefault(KeyCooldownMS, DefaultCooldownMS)
	viper.SetDefault(KeyMaxCompleted, DefaultMaxCompleted)
	viper.SetDefault(KeyCompletedAgeHrs, DefaultCompletedAgeHrs)
	viper.SetDefault(KeyQualityPreset, string(DefaultQualityPreset))
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
}

// Load resolves the settings snapshot, applying defaults and clamps
func Load() Settings {
	s := Settings{
		DownloadDir:     viper.GetString(KeyDownloadDir),
		MaxParallel:     clampParallel(viper.GetInt(KeyMaxParallel)),
		Cooldown:        time.Duration(viper.GetInt(KeyCooldownMS)) * time.Millisecond,
		MaxCompleted:    viper.GetInt(KeyMaxCompleted),
		CompletedMaxAge: time.Duration(viper.GetInt(KeyCompletedAgeHrs)) * time.Hour,
		QualityPreset:   QualityPreset(viper.GetString(KeyQualityPreset)),
		ListenAddr:      viper.GetString(KeyListenAddr),
		FFmpegPath:      viper.GetString(KeyFFmpegPath),
		FFprobePath:     viper.GetString(KeyFFprobePath),
		YtDlpPath:       viper.GetString(KeyYtDlpPath),
		FFmpegExtraArgs: viper.GetStringSlice(KeyFFmpegExtraArgs),
	}

	if s.DownloadDir == "" {
		if dir, err := platform.GetHomeDownloadsDir(); err == nil {
			s.DownloadDir = dir
		} else {
			s.DownloadDir = "."
		}
	}

	if s.Cooldown < 0 {
		s.Cooldown = DefaultCooldownMS * time.Millisecond
	}
	if s.MaxCompleted <= 0 {
		s.MaxCompleted = DefaultMaxCompleted
	}
	if s.CompletedMaxAge <= 0 {
		s.CompletedMaxAge = DefaultCompletedAgeHrs * time.Hour
	}
	if !validPreset(s.QualityPreset) {
		s.QualityPreset = DefaultQualityPreset
	}

	return s
}

// QualityPresetOptions returns the available quality preset options
func QualityPresetOptions() []QualityPreset {
	return []QualityPreset{QualityBest, QualityMedium, QualityAudio}
}

func validPreset(p QualityPreset) bool {
	switch p {
	case QualityBest, QualityMedium, QualityAudio:
		return true
	}
	return false
}

func clampParallel(n int) int {
	if n < MinParallel {
		return DefaultMaxParallel
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fetchmux"), nil
}
