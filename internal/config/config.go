package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig           `json:"server"`
	Database  DatabaseConfig         `json:"database"`
	Memory    MemoryConfig           `json:"memory"`
	Agents    map[string]AgentConfig `json:"agents"`
	Analysis  AnalysisConfig         `json:"analysis"`
	Staging   StagingConfig          `json:"staging"`
	Knowledge KnowledgeConfig        `json:"knowledge"`
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	CORSOrigins string `json:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`

	MaxOpenConns        int `json:"max_open_conns"`
	MaxIdleConns        int `json:"max_idle_conns"`
	ConnMaxLifetimeMins int `json:"conn_max_lifetime_minutes"`
}

// MemoryConfig selects and configures the shared memory store backend.
type MemoryConfig struct {
	Driver    string `json:"driver"` // "postgres", "redis" or "memory"
	RedisAddr string `json:"redis_addr"`
	RedisTTL  int    `json:"redis_ttl_hours"`
}

// AgentConfig holds per-role model settings. Recognized roles are
// "visualizer", "interviewer" and "boq".
type AgentConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

type AnalysisConfig struct {
	MaxInline          int `json:"max_inline"`
	BatchSize          int `json:"batch_size"`
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
}

type StagingConfig struct {
	TempDir string `json:"temp_dir"`
}

type KnowledgeConfig struct {
	Enabled        bool   `json:"enabled"`
	QdrantURL      string `json:"qdrant_url"`
	QdrantAPIKey   string `json:"qdrant_api_key,omitempty"`
	Collection     string `json:"collection"`
	EmbeddingModel string `json:"embedding_model"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".viab"))
	}

	// Set defaults
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "viab")
	viper.SetDefault("database.database", "viab")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime_minutes", 5)
	viper.SetDefault("memory.driver", "postgres")
	viper.SetDefault("memory.redis_ttl_hours", 24)
	viper.SetDefault("analysis.max_inline", 3)
	viper.SetDefault("analysis.batch_size", 2)
	viper.SetDefault("analysis.call_timeout_seconds", 120)
	viper.SetDefault("knowledge.collection", "ArchitectureStandards")
	viper.SetDefault("knowledge.embedding_model", "text-embedding-3-small")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := createDefaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func createDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "viab",
			Password: "",
			Database: "viab",
			SSLMode:  "disable",

			MaxOpenConns:        25,
			MaxIdleConns:        5,
			ConnMaxLifetimeMins: 5,
		},
		Memory: MemoryConfig{
			Driver:   "postgres",
			RedisTTL: 24,
		},
		Agents: map[string]AgentConfig{
			"visualizer": {
				Provider: "openai",
				Model:    "gpt-4o",
			},
			"interviewer": {
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
			"boq": {
				Provider: "openai",
				Model:    "gpt-4o",
			},
		},
		Analysis: AnalysisConfig{
			MaxInline:          3,
			BatchSize:          2,
			CallTimeoutSeconds: 120,
		},
		Knowledge: KnowledgeConfig{
			Collection:     "ArchitectureStandards",
			EmbeddingModel: "text-embedding-3-small",
		},
	}
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("VIAB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("VIAB_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if origins := os.Getenv("VIAB_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// Memory store overrides
	if driver := os.Getenv("VIAB_MEMORY_DRIVER"); driver != "" {
		cfg.Memory.Driver = driver
	}
	if addr := os.Getenv("VIAB_REDIS_ADDR"); addr != "" {
		cfg.Memory.RedisAddr = addr
	}

	// Per-agent model and API key overrides, with VIAB_API_KEY as the
	// shared fallback credential.
	if cfg.Agents == nil {
		cfg.Agents = createDefaultConfig().Agents
	}
	fallbackKey := os.Getenv("VIAB_API_KEY")
	overrideAgent(cfg, "visualizer", "VISUALIZER_AGENT_MODEL", "VISUALIZER_AGENT_API_KEY", fallbackKey)
	overrideAgent(cfg, "interviewer", "INTERVIEW_AGENT_MODEL", "INTERVIEW_AGENT_API_KEY", fallbackKey)
	overrideAgent(cfg, "boq", "BOQ_AGENT_MODEL", "BOQ_AGENT_API_KEY", fallbackKey)

	if url := os.Getenv("VIAB_QDRANT_URL"); url != "" {
		cfg.Knowledge.QdrantURL = url
		cfg.Knowledge.Enabled = true
	}
	if key := os.Getenv("VIAB_QDRANT_API_KEY"); key != "" {
		cfg.Knowledge.QdrantAPIKey = key
	}
	if tempDir := os.Getenv("VIAB_STAGING_DIR"); tempDir != "" {
		cfg.Staging.TempDir = tempDir
	}
}

func overrideAgent(cfg *Config, role, modelEnv, keyEnv, fallbackKey string) {
	agent := cfg.Agents[role]
	if model := os.Getenv(modelEnv); model != "" {
		agent.Model = model
	}
	if key := os.Getenv(keyEnv); key != "" {
		agent.APIKey = key
	} else if agent.APIKey == "" && fallbackKey != "" {
		agent.APIKey = fallbackKey
	}
	cfg.Agents[role] = agent
}
