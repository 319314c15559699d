package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Draft     DraftConfig     `mapstructure:"draft"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Documents DocumentsConfig `mapstructure:"documents"`
	IPLookup  IPLookupConfig  `mapstructure:"ip_lookup"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	MetricsAddress string   `mapstructure:"metrics_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type NotifyConfig struct {
	EmailEnabled bool   `mapstructure:"email_enabled"`
	FromEmail    string `mapstructure:"from_email"`
	AdminEmail   string `mapstructure:"admin_email"`
	SNSEnabled   bool   `mapstructure:"sns_enabled"`
	SNSTopicARN  string `mapstructure:"sns_topic_arn"`
}

type DraftConfig struct {
	TTLHours       int    `mapstructure:"ttl_hours"`
	DebounceMillis int    `mapstructure:"debounce_millis"`
	RetentionDays  int    `mapstructure:"retention_days"`
	SweepSchedule  string `mapstructure:"sweep_schedule"`
}

type PipelineConfig struct {
	PDFTimeoutSeconds     int `mapstructure:"pdf_timeout_seconds"`
	SubmitIntervalSeconds int `mapstructure:"submit_interval_seconds"`
	StageTimeoutSeconds   int `mapstructure:"stage_timeout_seconds"`
}

type DocumentsConfig struct {
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	MinFileBytes int64 `mapstructure:"min_file_bytes"`
}

type IPLookupConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
