package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_REDIS_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries the usual locations so tests running from nested
// directories still pick up the .env file.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "funding-apply"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MetricsAddress == "" {
		cfg.Server.MetricsAddress = ":9100"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "funding-applications"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "funding-apply"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Draft.TTLHours == 0 {
		cfg.Draft.TTLHours = 24 * 14
	}
	if cfg.Draft.DebounceMillis == 0 {
		cfg.Draft.DebounceMillis = 800
	}
	if cfg.Draft.RetentionDays == 0 {
		cfg.Draft.RetentionDays = 30
	}
	if cfg.Draft.SweepSchedule == "" {
		cfg.Draft.SweepSchedule = "30 3 * * *"
	}
	if cfg.Pipeline.PDFTimeoutSeconds == 0 {
		cfg.Pipeline.PDFTimeoutSeconds = 30
	}
	if cfg.Pipeline.SubmitIntervalSeconds == 0 {
		cfg.Pipeline.SubmitIntervalSeconds = 10
	}
	if cfg.Pipeline.StageTimeoutSeconds == 0 {
		cfg.Pipeline.StageTimeoutSeconds = 60
	}
	if cfg.Documents.MaxFileBytes == 0 {
		cfg.Documents.MaxFileBytes = 10 << 20 // 10 MiB
	}
	if cfg.Documents.MinFileBytes == 0 {
		cfg.Documents.MinFileBytes = 1 << 10 // 1 KiB
	}
	if cfg.IPLookup.URL == "" {
		cfg.IPLookup.URL = "https://api.ipify.org?format=json"
	}
	if cfg.IPLookup.TimeoutSeconds == 0 {
		cfg.IPLookup.TimeoutSeconds = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Documents.MinFileBytes >= cfg.Documents.MaxFileBytes {
		return fmt.Errorf("documents: min_file_bytes (%d) must be below max_file_bytes (%d)",
			cfg.Documents.MinFileBytes, cfg.Documents.MaxFileBytes)
	}
	if cfg.Notify.EmailEnabled && cfg.Notify.FromEmail == "" {
		return fmt.Errorf("notify: from_email is required when email is enabled")
	}
	if cfg.Notify.SNSEnabled && cfg.Notify.SNSTopicARN == "" {
		return fmt.Errorf("notify: sns_topic_arn is required when sns is enabled")
	}
	return nil
}
