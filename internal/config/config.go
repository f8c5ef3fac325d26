package config

import (
	"fmt"
	"strings"
	"time"

	"teraBridgeBot/internal/logger"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

type Configuration struct {
	ApiID    int
	ApiHash  string
	BotToken string
	BaseURL  string
	Port     string

	DownloadDirectory string
	DatabasePath      string
	DumpChannelID     string

	// SizeThreshold is the parsed size_threshold value in bytes. Files at
	// or above it are not relayed directly.
	SizeThreshold    string
	SizeThresholdVal int64

	RapidAPIBase      string
	RapidAPIKey       string
	CloudfetchAPIBase string

	ResolverPriority []string
	FallbackResolver string
	ResolverTimeout  time.Duration
	TransferTimeout  time.Duration
	AcceptPartial    bool

	TokenSecret string
	TokenTTL    time.Duration

	DebugMode bool
	LogLevel  string // Log level: DEBUG, INFO, WARNING, ERROR
}

// InitializeViper sets up Viper to read from environment variables and the .env file.
// This function should be called early in main.
func InitializeViper(log *logger.Logger) {
	viper.AutomaticEnv()

	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info(".env config file not found (this is expected if configuration is solely via environment variables or command-line flags).")
		} else {
			log.Infof("Could not read .env file: %v", err)
		}
		log.Info("Configuration will be loaded from environment variables and command-line flags.")
	} else {
		log.Info("Successfully loaded configuration from .env file")
	}
	// `viper.BindPFlags` is called in main.go after flags are defined.
}

// LoadConfig loads configuration from Viper's resolved settings. Viper
// should have already read from files, environment variables, and
// command-line flags.
func LoadConfig(log *logger.Logger) Configuration {
	var cfg Configuration

	cfg.ApiID = viper.GetInt("api_id")
	cfg.ApiHash = viper.GetString("api_hash")
	cfg.BotToken = viper.GetString("bot_token")
	cfg.BaseURL = viper.GetString("base_url")
	cfg.Port = viper.GetString("port")

	cfg.DownloadDirectory = viper.GetString("download_directory")
	cfg.DatabasePath = viper.GetString("database_path")
	cfg.DumpChannelID = viper.GetString("dump_channel_id")
	cfg.SizeThreshold = viper.GetString("size_threshold")

	cfg.RapidAPIBase = viper.GetString("rapid_api_base")
	cfg.RapidAPIKey = viper.GetString("rapid_api_key")
	cfg.CloudfetchAPIBase = viper.GetString("cloudfetch_api_base")

	cfg.ResolverPriority = splitList(viper.GetString("resolver_priority"))
	cfg.FallbackResolver = viper.GetString("fallback_resolver")
	cfg.ResolverTimeout = viper.GetDuration("resolver_timeout")
	cfg.TransferTimeout = viper.GetDuration("transfer_timeout")
	cfg.AcceptPartial = viper.GetBool("accept_partial")

	cfg.TokenSecret = viper.GetString("token_secret")
	cfg.TokenTTL = viper.GetDuration("token_ttl")

	cfg.DebugMode = viper.GetBool("debug_mode")
	cfg.LogLevel = viper.GetString("log_level")

	setDefaultValues(&cfg)
	parseSizeThreshold(&cfg, log)
	validateMandatoryFields(cfg, log)

	if cfg.DebugMode {
		log.Debugf("Loaded configuration: %+v", cfg)
	}

	return cfg
}

func validateMandatoryFields(cfg Configuration, log *logger.Logger) {
	if cfg.ApiID == 0 {
		log.Fatal("API_ID is required and not set")
	}
	if cfg.ApiHash == "" {
		log.Fatal("API_HASH is required and not set")
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required and not set")
	}
	if cfg.BaseURL == "" {
		log.Fatal("BASE_URL is required and not set")
	}
	if cfg.TokenSecret == "" {
		log.Fatal("TOKEN_SECRET is required and not set")
	}
	if cfg.RapidAPIBase == "" && cfg.CloudfetchAPIBase == "" {
		log.Fatal("At least one resolver API base URL must be configured")
	}
}

func setDefaultValues(cfg *Configuration) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DownloadDirectory == "" {
		cfg.DownloadDirectory = ".downloads"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = fmt.Sprintf("%s/teraBridgeBot.db", cfg.DownloadDirectory)
	}
	if cfg.SizeThreshold == "" {
		cfg.SizeThreshold = "50MB"
	}
	if len(cfg.ResolverPriority) == 0 {
		cfg.ResolverPriority = []string{"rapid", "cloudfetch"}
	}
	if cfg.ResolverTimeout == 0 {
		cfg.ResolverTimeout = 20 * time.Second
	}
	if cfg.TransferTimeout == 0 {
		cfg.TransferTimeout = 5 * time.Minute
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.LogLevel == "" {
		if cfg.DebugMode {
			cfg.LogLevel = "DEBUG"
		} else {
			cfg.LogLevel = "INFO"
		}
	}
}

func parseSizeThreshold(cfg *Configuration, log *logger.Logger) {
	v, err := humanize.ParseBytes(cfg.SizeThreshold)
	if err != nil {
		log.Fatalf("Invalid size_threshold %q: %v", cfg.SizeThreshold, err)
	}
	cfg.SizeThresholdVal = int64(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
