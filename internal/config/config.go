package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/timmy/nlsql-console/internal/domain"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// BackendConfig points at the NL-SQL management API.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UploadConfig configures the upload workflow.
type UploadConfig struct {
	Profile     string               `mapstructure:"profile"`
	Slots       []domain.InputSlot   `mapstructure:"slots"` // overrides Profile when set
	MaxFileSize int64                `mapstructure:"max_file_size"`
	Pacing      PacingConfig         `mapstructure:"pacing"`
	Progress    []ProgressCheckpoint `mapstructure:"progress"` // empty uses the built-in table
}

type PacingConfig struct {
	Integration      time.Duration `mapstructure:"integration"`
	Embedding        time.Duration `mapstructure:"embedding"`
	VectorStoreWrite time.Duration `mapstructure:"vector_store_write"`
}

type ProgressCheckpoint struct {
	Stage string `mapstructure:"stage"`
	Entry int    `mapstructure:"entry"`
	Exit  int    `mapstructure:"exit"`
}

// InputSlots returns the configured slots, falling back to the profile's slots.
func (c *UploadConfig) InputSlots() []domain.InputSlot {
	if len(c.Slots) > 0 {
		return c.Slots
	}
	return domain.SlotProfile(c.Profile).Slots()
}

// StorageConfig selects where uploaded input files are staged.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, minio, s3, r2, s3compatible; empty detects from endpoint
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	LocalPath string `mapstructure:"local_path"`
}

// DatabaseConfig configures the staged file catalog.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file
	URL             string        `mapstructure:"url"`    // postgres URL, takes precedence over the fields below
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// QdrantConfig points at the vector store the backend writes embeddings to.
type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "60s")
	v.SetDefault("upload.profile", string(domain.SlotProfileTwoFile))
	v.SetDefault("upload.max_file_size", 50<<20)
	v.SetDefault("upload.pacing.integration", "1000ms")
	v.SetDefault("upload.pacing.embedding", "1500ms")
	v.SetDefault("upload.pacing.vector_store_write", "800ms")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./data/uploads")
	v.SetDefault("storage.bucket", "nlsql-uploads")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/console.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "table_metadata")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("backend.base_url", "BACKEND_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}
	switch domain.SlotProfile(c.Upload.Profile) {
	case domain.SlotProfileTwoFile, domain.SlotProfileThreeFile:
	default:
		if len(c.Upload.Slots) == 0 {
			return fmt.Errorf("unknown upload.profile %q", c.Upload.Profile)
		}
	}
	seen := make(map[domain.InputSlotID]bool)
	for _, slot := range c.Upload.Slots {
		if slot.ID == "" {
			return fmt.Errorf("upload.slots entries need an id")
		}
		if seen[slot.ID] {
			return fmt.Errorf("duplicate upload slot %q", slot.ID)
		}
		seen[slot.ID] = true
	}
	if c.Database.Enabled && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}
