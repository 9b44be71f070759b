package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	StorageBackendFS    = "fs"
	StorageBackendMinIO = "minio"

	IndexBackendNone     = "none"
	IndexBackendBolt     = "bolt"
	IndexBackendPostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"sslmode"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// StorageConfig selects where uploads and processed records are kept.
// Dir is the root for the filesystem backend; the prefixes apply to both backends.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	RecordsPrefix string `yaml:"records_prefix"`
	UploadsPrefix string `yaml:"uploads_prefix"`
}

// IndexConfig selects the optional record index used for paginated listing.
type IndexConfig struct {
	Backend  string `yaml:"backend"`
	BoltPath string `yaml:"bolt_path"`
}

// OCRConfig configures the external OCR toolchain.
type OCRConfig struct {
	Pdftoppm    string `yaml:"pdftoppm"`
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	TessdataDir string `yaml:"tessdata_dir"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
	Preprocess  bool   `yaml:"preprocess"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// AppConfig is the centralized configuration struct for the application.
// Values come from built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string         `yaml:"app_host"`
	Port           string         `yaml:"port"`
	Timezone       string         `yaml:"timezone"`
	LogLevel       string         `yaml:"log_level"`
	MaxUploadBytes int            `yaml:"max_upload_bytes"`
	Database       DatabaseConfig `yaml:"database"`
	MinIO          MinIOConfig    `yaml:"minio"`
	Storage        StorageConfig  `yaml:"storage"`
	Index          IndexConfig    `yaml:"index"`
	OCR            OCRConfig      `yaml:"ocr"`
}

func defaults() *AppConfig {
	return &AppConfig{
		AppHost:        "localhost:8080",
		Port:           "8080",
		Timezone:       "UTC",
		LogLevel:       "info",
		MaxUploadBytes: 20 << 20,
		Database: DatabaseConfig{
			Port:               "5432",
			SSLMode:            "disable",
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetimeSec: 300,
		},
		Storage: StorageConfig{
			Backend:       StorageBackendFS,
			Dir:           ".",
			RecordsPrefix: "processed",
			UploadsPrefix: "uploads",
		},
		Index: IndexConfig{
			Backend:  IndexBackendNone,
			BoltPath: "index/invoices.db",
		},
		OCR: OCRConfig{
			Pdftoppm:   "pdftoppm",
			Tesseract:  "tesseract",
			Lang:       "eng",
			DPI:        300,
			Preprocess: true,
			TimeoutSec: 120,
		},
	}
}

// Load reads configuration. A .env file can be auto-loaded by importing:
// _ "github.com/joho/godotenv/autoload"; real environment variables take precedence.
func Load() (*AppConfig, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *AppConfig) {
	c.AppHost = getEnv("APP_HOST", c.AppHost)
	c.Port = getEnv("PORT", c.Port)
	c.Timezone = getEnv("APP_TIMEZONE", c.Timezone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MaxUploadBytes = getEnvInt("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetimeSec = getEnvInt("DB_CONN_MAX_LIFETIME_SEC", c.Database.ConnMaxLifetimeSec)

	c.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", c.MinIO.Endpoint)
	c.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", c.MinIO.SecretKey)
	c.MinIO.Bucket = getEnv("MINIO_BUCKET", c.MinIO.Bucket)
	c.MinIO.UseSSL = getEnvBool("MINIO_USE_SSL", c.MinIO.UseSSL)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Dir = getEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.RecordsPrefix = getEnv("RECORDS_PREFIX", c.Storage.RecordsPrefix)
	c.Storage.UploadsPrefix = getEnv("UPLOADS_PREFIX", c.Storage.UploadsPrefix)

	c.Index.Backend = getEnv("INDEX_BACKEND", c.Index.Backend)
	c.Index.BoltPath = getEnv("INDEX_BOLT_PATH", c.Index.BoltPath)

	c.OCR.Pdftoppm = getEnv("OCR_PDFTOPPM", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("OCR_TESSERACT", c.OCR.Tesseract)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.TessdataDir = getEnv("OCR_TESSDATA_DIR", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.Preprocess = getEnvBool("OCR_PREPROCESS", c.OCR.Preprocess)
	c.OCR.TimeoutSec = getEnvInt("OCR_TIMEOUT_SEC", c.OCR.TimeoutSec)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
