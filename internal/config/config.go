package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration for both the kiosk agent and
// the share server
type Config struct {
	Agent  Agent  `json:"agent"`
	Server Server `json:"server"`
	Expiry Expiry `json:"expiry"`
}

// Agent configures the kiosk capture agent
type Agent struct {
	ListenAddress  string `json:"listenAddress"`
	QueueDBPath    string `json:"queueDbPath"`
	SyncIntervalMs int    `json:"syncIntervalMs"`
	MaxRetryCount  int    `json:"maxRetryCount"`
	StorageBackend string `json:"storageBackend"` // "server" or "s3"
	Remote         Remote `json:"remote"`
	S3             S3     `json:"s3"`
}

// Remote configures the agent's clients for the share server
type Remote struct {
	BaseURL      string `json:"baseUrl"`
	APIKey       string `json:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader"`
	TokenURL     string `json:"tokenUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// S3 configures direct-to-S3 object storage
type S3 struct {
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Endpoint  string `json:"endpoint"`
}

// Server configures the share server
type Server struct {
	Address          string `json:"address"`
	DatabasePath     string `json:"databasePath"`
	DatabaseURL      string `json:"databaseUrl"`
	StorageBasePath  string `json:"storageBasePath"`
	MaxFileSizeMB    int64  `json:"maxFileSizeMB"`
	APIKey           string `json:"apiKey"`
	APIKeyHeader     string `json:"apiKeyHeader"`
	AdminKeyHash     string `json:"adminKeyHash"` // bcrypt hash of the admin key
	DownloadRPM      int    `json:"downloadRpm"`  // per-client rate limit for public downloads
	CleanupIntervalM int    `json:"cleanupIntervalMinutes"`
}

// Expiry configures the shared-content lifetime
type Expiry struct {
	WindowHours int `json:"windowHours"`
}

// UsePostgres returns true if PostgreSQL should be used for the server
func (s *Server) UsePostgres() bool {
	return s.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Agent: Agent{
			ListenAddress:  ":8090",
			QueueDBPath:    "boothqueue.db",
			SyncIntervalMs: 60000,
			MaxRetryCount:  5,
			StorageBackend: "server",
			Remote: Remote{
				BaseURL:      "http://localhost:8080",
				APIKeyHeader: "X-API-Key",
			},
		},
		Server: Server{
			Address:          ":8080",
			DatabasePath:     "boothserver.db",
			StorageBasePath:  "./photos",
			MaxFileSizeMB:    20,
			APIKey:           "CHANGE_THIS_TO_A_SECURE_API_KEY_AT_LEAST_32_CHARS",
			APIKeyHeader:     "X-API-Key",
			DownloadRPM:      60,
			CleanupIntervalM: 60,
		},
		Expiry: Expiry{
			WindowHours: 24,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	// Ensure photo storage directory exists
	if err := os.MkdirAll(cfg.Server.StorageBasePath, 0755); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(cfg.Server.StorageBasePath)
	if err != nil {
		return nil, err
	}
	cfg.Server.StorageBasePath = absPath

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("AGENT_ADDRESS"); addr != "" {
		cfg.Agent.ListenAddress = addr
	}
	if path := os.Getenv("QUEUE_DB_PATH"); path != "" {
		cfg.Agent.QueueDBPath = path
	}
	if v := os.Getenv("SYNC_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Agent.SyncIntervalMs = ms
		}
	}
	if v := os.Getenv("MAX_RETRY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxRetryCount = n
		}
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		cfg.Agent.StorageBackend = backend
	}
	if url := os.Getenv("REMOTE_BASE_URL"); url != "" {
		cfg.Agent.Remote.BaseURL = url
	}
	if key := os.Getenv("REMOTE_API_KEY"); key != "" {
		cfg.Agent.Remote.APIKey = key
	}
	if url := os.Getenv("OAUTH_TOKEN_URL"); url != "" {
		cfg.Agent.Remote.TokenURL = url
	}
	if id := os.Getenv("OAUTH_CLIENT_ID"); id != "" {
		cfg.Agent.Remote.ClientID = id
	}
	if secret := os.Getenv("OAUTH_CLIENT_SECRET"); secret != "" {
		cfg.Agent.Remote.ClientSecret = secret
	}

	if region := os.Getenv("S3_REGION"); region != "" {
		cfg.Agent.S3.Region = region
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.Agent.S3.Bucket = bucket
	}
	if key := os.Getenv("S3_ACCESS_KEY"); key != "" {
		cfg.Agent.S3.AccessKey = key
	}
	if key := os.Getenv("S3_SECRET_KEY"); key != "" {
		cfg.Agent.S3.SecretKey = key
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		cfg.Agent.S3.Endpoint = endpoint
	}

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Server.DatabasePath = path
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Server.DatabaseURL = url
	}
	if path := os.Getenv("PHOTO_STORAGE_PATH"); path != "" {
		cfg.Server.StorageBasePath = path
	}
	if key := os.Getenv("API_KEY"); key != "" {
		cfg.Server.APIKey = key
	}
	if hash := os.Getenv("ADMIN_KEY_HASH"); hash != "" {
		cfg.Server.AdminKeyHash = hash
	}
	if v := os.Getenv("DOWNLOAD_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.DownloadRPM = n
		}
	}

	if v := os.Getenv("EXPIRY_WINDOW_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			cfg.Expiry.WindowHours = hours
		}
	}
}
