package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/luocen/notelens/pkg/logger"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logger      logger.Config     `yaml:"logger"`
	Auth        AuthConfig        `yaml:"auth"`
	Xiaohongshu XiaohongshuConfig `yaml:"xiaohongshu"`
	AI          AIConfig          `yaml:"ai"`
	Media       MediaConfig       `yaml:"media"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type AuthConfig struct {
	SessionTTL string `yaml:"session_ttl"`
}

// XiaohongshuConfig configures the collection API gateway.
type XiaohongshuConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	APIToken   string `yaml:"api_token"`
}

// AIConfig configures the transcription and completion endpoints.
type AIConfig struct {
	APIBaseURL          string   `yaml:"api_base_url"`
	APIKey              string   `yaml:"api_key"`
	CompletionModel     string   `yaml:"completion_model"`
	TranscriptionModels []string `yaml:"transcription_models"`
}

type MediaConfig struct {
	CacheDir   string `yaml:"cache_dir"`
	YTDLPPath  string `yaml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	CycleInterval    string `yaml:"cycle_interval"`
	RecoveryInterval string `yaml:"recovery_interval"`
	ItemDelay        string `yaml:"item_delay"`
	RetryDelay       string `yaml:"retry_delay"`

	CollectionBatchSize    int `yaml:"collection_batch_size"`
	TranscriptionBatchSize int `yaml:"transcription_batch_size"`
	AnalysisBatchSize      int `yaml:"analysis_batch_size"`

	MaxDownloadAttempts   int `yaml:"max_download_attempts"`
	MaxTranscribeAttempts int `yaml:"max_transcribe_attempts"`
	MaxDetailRetries      int `yaml:"max_detail_retries"`

	SearchMaxPages         int `yaml:"search_max_pages"`
	SearchPageSize         int `yaml:"search_page_size"`
	FallbackSearchMaxPages int `yaml:"fallback_search_max_pages"`

	StatsInterval string `yaml:"stats_interval"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5336
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Auth.SessionTTL == "" {
		cfg.Auth.SessionTTL = "168h"
	}
	if cfg.Xiaohongshu.APIBaseURL == "" {
		cfg.Xiaohongshu.APIBaseURL = "https://aihubmax.com/ability/collect/xhs"
	}
	if cfg.AI.APIBaseURL == "" {
		cfg.AI.APIBaseURL = "https://aihubmax.com/v1"
	}
	if cfg.AI.CompletionModel == "" {
		cfg.AI.CompletionModel = "qwen3-30b-a3b"
	}
	if len(cfg.AI.TranscriptionModels) == 0 {
		cfg.AI.TranscriptionModels = []string{"whisper-1", "large", "medium"}
	}
	if cfg.Media.CacheDir == "" {
		cfg.Media.CacheDir = "./media_cache"
	}
	if cfg.Media.YTDLPPath == "" {
		cfg.Media.YTDLPPath = "yt-dlp"
	}
	if cfg.Media.FFmpegPath == "" {
		cfg.Media.FFmpegPath = "ffmpeg"
	}
	if cfg.Scheduler.CycleInterval == "" {
		cfg.Scheduler.CycleInterval = "15s"
	}
	if cfg.Scheduler.RecoveryInterval == "" {
		cfg.Scheduler.RecoveryInterval = "10s"
	}
	if cfg.Scheduler.ItemDelay == "" {
		cfg.Scheduler.ItemDelay = "2s"
	}
	if cfg.Scheduler.RetryDelay == "" {
		cfg.Scheduler.RetryDelay = "10s"
	}
	if cfg.Scheduler.CollectionBatchSize == 0 {
		cfg.Scheduler.CollectionBatchSize = 5
	}
	if cfg.Scheduler.TranscriptionBatchSize == 0 {
		cfg.Scheduler.TranscriptionBatchSize = 2
	}
	if cfg.Scheduler.AnalysisBatchSize == 0 {
		cfg.Scheduler.AnalysisBatchSize = 2
	}
	if cfg.Scheduler.MaxDownloadAttempts == 0 {
		cfg.Scheduler.MaxDownloadAttempts = 3
	}
	if cfg.Scheduler.MaxTranscribeAttempts == 0 {
		cfg.Scheduler.MaxTranscribeAttempts = 3
	}
	if cfg.Scheduler.MaxDetailRetries == 0 {
		cfg.Scheduler.MaxDetailRetries = 3
	}
	if cfg.Scheduler.SearchMaxPages == 0 {
		cfg.Scheduler.SearchMaxPages = 10
	}
	if cfg.Scheduler.SearchPageSize == 0 {
		cfg.Scheduler.SearchPageSize = 20
	}
	if cfg.Scheduler.FallbackSearchMaxPages == 0 {
		cfg.Scheduler.FallbackSearchMaxPages = 200
	}
	if cfg.Scheduler.StatsInterval == "" {
		cfg.Scheduler.StatsInterval = "10m"
	}
	if !cfg.Scheduler.Enabled {
		cfg.Scheduler.Enabled = true
	}

	return cfg, nil
}
