package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"agronity/agronity-backend/internal/feasibility"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig           `json:"server"`
	Database      DatabaseConfig         `json:"database"`
	Data          DataConfig             `json:"data"`
	Models        ModelsConfig           `json:"models"`
	Scoring       feasibility.Parameters `json:"scoring"`
	Storage       StorageConfig          `json:"storage"`
	Notifications NotificationsConfig    `json:"notifications"`
	Security      SecurityConfig         `json:"security"`
	Logging       LoggingConfig          `json:"logging"`
	Metrics       MetricsConfig          `json:"metrics"`
	Retention     RetentionConfig        `json:"retention"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Mode            string        `json:"mode"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	MaxUploadBytes  int64         `json:"max_upload_bytes"`
}

// DatabaseConfig represents database configuration. The database backs the
// evaluation history and, when Data.PostgresTable is set, the dataset.
type DatabaseConfig struct {
	Enabled        bool          `json:"enabled"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// DataConfig locates the agronomic datasets. CSV files are concatenated in
// order.
type DataConfig struct {
	CSVPaths         []string `json:"csv_paths"`
	ExcelPath        string   `json:"excel_path"`
	ExcelSheet       string   `json:"excel_sheet"`
	PostgresTable    string   `json:"postgres_table"`
	RegionalCSVPaths []string `json:"regional_csv_paths"`
}

// ModelsConfig locates the model artifacts.
type ModelsConfig struct {
	PreprocessorPath string        `json:"preprocessor_path"`
	ClassifierPath   string        `json:"classifier_path"`
	RegressorPath    string        `json:"regressor_path"`
	RegionalPath     string        `json:"regional_path"`
	VisionEndpoint   string        `json:"vision_endpoint"`
	VisionTimeout    time.Duration `json:"vision_timeout"`
}

// StorageConfig selects the image store.
type StorageConfig struct {
	Backend  string   `json:"backend"`
	LocalDir string   `json:"local_dir"`
	S3       S3Config `json:"s3"`
}

// S3Config configures the S3 image store and snapshot uploads.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Prefix          string `json:"prefix"`
	UsePathStyle    bool   `json:"use_path_style"`
}

// NotificationsConfig configures disease alerts.
type NotificationsConfig struct {
	Enabled     bool   `json:"enabled"`
	SNSTopicARN string `json:"sns_topic_arn"`
	Region      string `json:"region"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// MetricsConfig
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RetentionConfig drives the history retention worker.
type RetentionConfig struct {
	Enabled          bool          `json:"enabled"`
	Schedule         string        `json:"schedule"`
	MaxAge           time.Duration `json:"max_age"`
	SnapshotSchedule string        `json:"snapshot_schedule"`
	SnapshotPrefix   string        `json:"snapshot_prefix"`
}

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "agronity",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    5 * time.Minute,
		},
		Data: DataConfig{
			CSVPaths:   []string{"data/dataset.csv"},
			ExcelSheet: "Sheet1",
		},
		Models: ModelsConfig{
			PreprocessorPath: "models/preprocessor.json",
			ClassifierPath:   "models/classifier.json",
			RegressorPath:    "models/regressor.json",
			RegionalPath:     "models/agri_model.json",
			VisionTimeout:    10 * time.Second,
		},
		Scoring: feasibility.DefaultParameters(),
		Storage: StorageConfig{
			Backend:  StorageLocal,
			LocalDir: "uploads",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Retention: RetentionConfig{
			Schedule:         "0 3 * * *",
			MaxAge:           90 * 24 * time.Hour,
			SnapshotSchedule: "0 4 * * 0",
			SnapshotPrefix:   "snapshots/",
		},
	}
}

// LoadConfig loads configuration from file and environment variables. Env
// files that exist are loaded first; variables already set in the process
// environment take precedence over them.
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadEnvFiles(files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func overrideWithEnv(config *Config) error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		config.Server.Port = p
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	if enabled := os.Getenv("DATABASE_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_ENABLED: %w", err)
		}
		config.Database.Enabled = b
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}

	if paths := os.Getenv("DATA_CSV_PATHS"); paths != "" {
		config.Data.CSVPaths = splitList(paths)
	}
	if paths := os.Getenv("DATA_REGIONAL_CSV_PATHS"); paths != "" {
		config.Data.RegionalCSVPaths = splitList(paths)
	}
	if table := os.Getenv("DATA_POSTGRES_TABLE"); table != "" {
		config.Data.PostgresTable = table
	}

	if endpoint := os.Getenv("VISION_ENDPOINT"); endpoint != "" {
		config.Models.VisionEndpoint = endpoint
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.S3.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Storage.S3.Region = region
		if config.Notifications.Region == "" {
			config.Notifications.Region = region
		}
	}
	if topic := os.Getenv("SNS_TOPIC_ARN"); topic != "" {
		config.Notifications.SNSTopicARN = topic
		config.Notifications.Enabled = true
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if maxAge := os.Getenv("RETENTION_MAX_AGE"); maxAge != "" {
		d, err := time.ParseDuration(maxAge)
		if err != nil {
			return fmt.Errorf("invalid RETENTION_MAX_AGE: %w", err)
		}
		config.Retention.MaxAge = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Data.CSVPaths) == 0 && c.Data.ExcelPath == "" && c.Data.PostgresTable == "" {
		return errors.New("no dataset source configured")
	}
	if c.Data.PostgresTable != "" && !c.Database.Enabled {
		return errors.New("data.postgres_table requires database.enabled")
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Notifications.Enabled && c.Notifications.SNSTopicARN == "" {
		return errors.New("notifications.sns_topic_arn is required when notifications are enabled")
	}
	if c.Retention.Enabled && c.Retention.MaxAge <= 0 {
		return errors.New("retention.max_age must be positive")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
