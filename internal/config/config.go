package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipefy    PipefyConfig    `mapstructure:"pipefy"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	DLQ       DLQConfig       `mapstructure:"dlq"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Report    ReportConfig    `mapstructure:"report"`
	Checklist ChecklistConfig `mapstructure:"checklist"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type PipefyConfig struct {
	URL             string        `mapstructure:"url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ReportField     string        `mapstructure:"report_field"`
	ReportKeywords  []string      `mapstructure:"report_keywords"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

type StorageConfig struct {
	URL        string        `mapstructure:"url"`
	Bucket     string        `mapstructure:"bucket"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString returns a postgres connection string for pgx and migrate.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type AnalysisConfig struct {
	URL           string        `mapstructure:"url"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
	RetryWait     time.Duration `mapstructure:"retry_wait"`
}

type DispatchConfig struct {
	QueueSize int `mapstructure:"queue_size"`
	Workers   int `mapstructure:"workers"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	NatsURL string `mapstructure:"nats_url"`
}

type RegistryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIURL   string        `mapstructure:"api_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RedisURL string        `mapstructure:"redis_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ReportConfig names the database table whose inserts carry finished
// reports on the secondary webhook.
type ReportConfig struct {
	Table string `mapstructure:"table"`
}

type ChecklistConfig struct {
	ConfigName string `mapstructure:"config_name"`
	DefaultURL string `mapstructure:"default_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8003)
	v.SetDefault("server.read_timeout", "30s")
	// Attachment transfers run in the request path, so the write deadline
	// must outlast several download+upload round trips.
	v.SetDefault("server.write_timeout", "600s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1048576)
	v.SetDefault("pipefy.url", "https://api.pipefy.com/graphql")
	v.SetDefault("pipefy.timeout", "30s")
	v.SetDefault("pipefy.report_field", "Informe CrewAI")
	v.SetDefault("pipefy.report_keywords", []string{
		"informe crewai",
		"informe crew ai",
		"crewai informe",
		"crew ai informe",
	})
	v.SetDefault("pipefy.download_timeout", "60s")
	v.SetDefault("storage.bucket", "documents")
	v.SetDefault("storage.timeout", "60s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "docingest")
	v.SetDefault("database.dbname", "docingest")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("analysis.probe_timeout", "30s")
	v.SetDefault("analysis.invoke_timeout", "900s")
	v.SetDefault("analysis.retry_wait", "30s")
	v.SetDefault("dispatch.queue_size", 100)
	v.SetDefault("dispatch.workers", 1)
	v.SetDefault("dlq.enabled", true)
	v.SetDefault("dlq.backend", "file")
	v.SetDefault("dlq.path", "/var/lib/docingest/dlq")
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")
	v.SetDefault("registry.enabled", false)
	v.SetDefault("registry.api_url", "https://brasilapi.com.br/api/cnpj/v1")
	v.SetDefault("registry.timeout", "10s")
	v.SetDefault("registry.redis_url", "redis://localhost:6379/0")
	v.SetDefault("registry.cache_ttl", "24h")
	v.SetDefault("report.table", "informe_cadastro")
	v.SetDefault("checklist.config_name", "checklist_cadastro_pj")
	v.SetDefault("checklist.default_url", "https://storage.caseflow.dev/object/public/checklist/checklist.pdf")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docingest")
	}

	// Environment variables override
	v.SetEnvPrefix("DOCINGEST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
