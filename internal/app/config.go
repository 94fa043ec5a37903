package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

const (
	RetentionKeep  = "keep"
	RetentionPurge = "purge"
)

type ColumnsConfig struct {
	Code     string `toml:"code"`
	Title    string `toml:"title"`
	Area     string `toml:"area"`
	Year     string `toml:"year"`
	Schedule string `toml:"schedule"`
}

type GSheetConfig struct {
	SheetID         string `toml:"sheet_id"`
	Range           string `toml:"range"`
	CredentialsPath string `toml:"credentials_path"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
		// TrustProxy takes the client address from X-Forwarded-For. Only
		// enable behind a reverse proxy that sets the header.
		TrustProxy bool `toml:"trust_proxy"`
	} `toml:"server"`

	Database struct {
		DSN string `toml:"dsn"`
	} `toml:"database"`

	Session struct {
		Name   string `toml:"name"`
		Secret string `toml:"secret"`
	} `toml:"session"`

	Reviews struct {
		// Retention is "keep" (retracted reviews stay as history) or
		// "purge" (older retracted rows are deleted on each cancel).
		Retention string `toml:"retention"`
	} `toml:"reviews"`

	Throttle struct {
		Enabled       bool   `toml:"enabled"`
		RedisURL      string `toml:"redis_url"`
		KeyTemplate   string `toml:"key_template"`
		Limit         int64  `toml:"limit"`
		WindowSeconds int    `toml:"window_seconds"`
	} `toml:"throttle"`

	Import struct {
		Sheet   string        `toml:"sheet"`
		Columns ColumnsConfig `toml:"columns"`
		GSheet  GSheetConfig  `toml:"gsheet"`
	} `toml:"import"`
}

// env overrides, applied after the file is read
const (
	envPort          = "SYLLABUS_PORT"
	envDSN           = "SYLLABUS_DATABASE_DSN"
	envSessionSecret = "SYLLABUS_SESSION_SECRET"
	envRedisURL      = "SYLLABUS_REDIS_URL"
)

func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	config.applyDefaults()
	config.applyEnv()

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Reviews.Retention != RetentionKeep && config.Reviews.Retention != RetentionPurge {
		return nil, fmt.Errorf("unknown review retention %q, use %q or %q", config.Reviews.Retention, RetentionKeep, RetentionPurge)
	}
	if config.Throttle.Enabled && config.Throttle.RedisURL == "" {
		return nil, fmt.Errorf("throttle is enabled but redis_url is empty")
	}

	logger.Debug.Printf("Loaded config: dsn=%s retention=%s throttle=%v", config.Database.DSN, config.Reviews.Retention, config.Throttle.Enabled)

	return &config, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Database.DSN, "syllabus.db")
	setDefault(&c.Session.Name, "syllabus-flash")
	setDefault(&c.Reviews.Retention, RetentionKeep)
	setDefault(&c.Throttle.KeyTemplate, "syllabus:throttle:{client}")
	if c.Throttle.Limit <= 0 {
		c.Throttle.Limit = 10
	}
	if c.Throttle.WindowSeconds <= 0 {
		c.Throttle.WindowSeconds = 60
	}

	// headers of the faculty timetable export
	setDefault(&c.Import.Columns.Code, "科目番号")
	setDefault(&c.Import.Columns.Title, "授業科目名")
	setDefault(&c.Import.Columns.Area, "専攻区分")
	setDefault(&c.Import.Columns.Year, "標準履修年次")
	setDefault(&c.Import.Columns.Schedule, "時間割")
	setDefault(&c.Import.GSheet.Range, "A1:Z")
}

func (c *Config) applyEnv() {
	overrideFromEnv(&c.Server.Port, envPort)
	overrideFromEnv(&c.Database.DSN, envDSN)
	overrideFromEnv(&c.Session.Secret, envSessionSecret)
	overrideFromEnv(&c.Throttle.RedisURL, envRedisURL)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func overrideFromEnv(field *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*field = value
	}
}
