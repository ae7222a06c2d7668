package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	VectorDB  VectorDBConfig  `mapstructure:"vectordb"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embed     EmbedConfig     `mapstructure:"embed"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Document  DocumentConfig  `mapstructure:"document"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
}

// StorageConfig holds uploaded file storage settings.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local or minio
	Path      string `mapstructure:"path"` // local storage root
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// VectorDBConfig holds vector index settings.
type VectorDBConfig struct {
	Type     string `mapstructure:"type"` // faiss or memory
	Path     string `mapstructure:"path"`
	Dim      int    `mapstructure:"dim"`
	Distance string `mapstructure:"distance"` // cosine, l2, dot
}

// LLMConfig holds completion model settings.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	Endpoint    string  `mapstructure:"endpoint"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // seconds
}

// EmbedConfig holds embedding model settings.
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	BatchSize  int    `mapstructure:"batch_size"`
	Dimensions int    `mapstructure:"dimensions"`
	Timeout    int    `mapstructure:"timeout"` // seconds
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Type     string `mapstructure:"type"` // memory or redis
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

// QueueConfig holds background task queue settings.
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Concurrency   int    `mapstructure:"concurrency"`
	RetryLimit    int    `mapstructure:"retry_limit"`
	RetryDelay    int    `mapstructure:"retry_delay"` // seconds
}

// DatabaseConfig holds metadata database settings.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite
	DSN  string `mapstructure:"dsn"`
}

// DocumentConfig holds chunking settings.
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // runes per chunk
	ChunkOverlap int `mapstructure:"chunk_overlap"` // runes shared between neighbors
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float32 `mapstructure:"min_score"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	File       string `mapstructure:"file"`   // empty means stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from a YAML file with environment variable
// overrides. A missing file is not an error; defaults apply and a
// default config file is written for next time.
func Load(configPath string) (*Config, error) {
	// .env values become visible to both viper and the ${VAR}
	// placeholders below. Missing .env is fine.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("config file not found at %s, using defaults", configPath)
			if dir := filepath.Dir(configPath); dir != "" {
				if err := os.MkdirAll(dir, 0755); err == nil {
					if err := v.WriteConfigAs(configPath); err != nil {
						log.Printf("could not write default config to %s: %v", configPath, err)
					}
				}
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expandSecrets(&config)
	return &config, nil
}

// expandSecrets resolves ${ENV_VAR} placeholders in secret fields, so
// config files never have to hold real keys.
func expandSecrets(cfg *Config) {
	cfg.Embed.APIKey = expandEnv(cfg.Embed.APIKey)
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Storage.SecretKey = expandEnv(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Queue.RedisPassword = expandEnv(cfg.Queue.RedisPassword)
}

func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if env := os.Getenv(value[2 : len(value)-1]); env != "" {
			return env
		}
	}
	return value
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/files")
	v.SetDefault("storage.bucket", "research-rag")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("vectordb.type", "faiss")
	v.SetDefault("vectordb.path", "./data/vectordb")
	v.SetDefault("vectordb.dim", 1536)
	v.SetDefault("vectordb.distance", "cosine")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 60)

	v.SetDefault("embed.provider", "openai")
	v.SetDefault("embed.model", "text-embedding-3-small")
	v.SetDefault("embed.endpoint", "https://api.openai.com/v1")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.dimensions", 1536)
	v.SetDefault("embed.timeout", 30)

	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 86400)

	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/research-rag.db")

	v.SetDefault("document.chunk_size", 1000)
	v.SetDefault("document.chunk_overlap", 200)

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_score", 0.5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
