package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

const Prefix = "EMOTION"

type Config struct {
	conf.Version
	Web struct {
		HTTPAddr         string        `conf:"default:0.0.0.0:8080"`
		GRPCAddr         string        `conf:"default:0.0.0.0:50051"`
		CORSOrigin       string        `conf:"default:*"`
		ReadTimeout      time.Duration `conf:"default:15s"`
		WriteTimeout     time.Duration `conf:"default:15s"`
		IdleTimeout      time.Duration `conf:"default:60s"`
		ShutdownTimeout  time.Duration `conf:"default:10s"`
		MaxMessageSizeMB int           `conf:"default:50"`
	}
	DB struct {
		Driver       string `conf:"default:sqlite3"`
		Path         string `conf:"default:emotions.db"`
		Host         string `conf:"default:localhost"`
		Port         string `conf:"default:5432"`
		User         string `conf:"default:postgres"`
		Password     string `conf:"mask"`
		Name         string `conf:"default:emotions"`
		SSLMode      string `conf:"default:disable"`
		MaxOpenConns int    `conf:"default:25"`
		MaxIdleConns int    `conf:"default:5"`
	}
	Detection struct {
		MaxTextLength int    `conf:"default:5000"`
		HistoryLimit  int    `conf:"default:10"`
		LexiconPath   string `conf:"help:YAML file overriding the keyword tables"`
	}
	Sentiment struct {
		Mode    string        `conf:"default:local,help:local or remote"`
		URL     string        `conf:"help:base URL of the remote sentiment service"`
		Timeout time.Duration `conf:"default:5s"`
	}
	Face struct {
		Mode            string        `conf:"default:grpc,help:grpc http or none"`
		Addr            string        `conf:"default:localhost:9000"`
		Timeout         time.Duration `conf:"default:5s"`
		BreakerFailures uint32        `conf:"default:5"`
		BreakerTimeout  time.Duration `conf:"default:30s"`
	}
	Redis struct {
		Addr     string
		Password string `conf:"mask"`
		Channel  string `conf:"default:emotion:detections"`
	}
	Retention struct {
		Days     int    `conf:"default:0"`
		Schedule string `conf:"default:@daily"`
	}
	Admin struct {
		KeyHash string `conf:"mask,help:bcrypt hash of the X-Admin-Key header value"`
	}
	Log struct {
		Level       string `conf:"default:info"`
		Environment string `conf:"default:production"`
	}
}

// Load reads .env (when present), then environment variables and flags.
// When --help or --version is requested the text to print is returned along
// with conf.ErrHelpWanted.
func Load(build string) (*Config, string, error) {
	_ = godotenv.Load()

	cfg := Config{
		Version: conf.Version{
			Build: build,
			Desc:  "AI emotion detection service",
		},
	}
	help, err := conf.Parse(Prefix, &cfg)
	if err != nil {
		return nil, help, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, "", nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("db driver %q: want sqlite3 or pgx", c.DB.Driver))
	}
	switch c.Sentiment.Mode {
	case "local":
	case "remote":
		if c.Sentiment.URL == "" {
			errs = append(errs, errors.New("sentiment url is required in remote mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("sentiment mode %q: want local or remote", c.Sentiment.Mode))
	}
	switch c.Face.Mode {
	case "grpc", "http", "none":
	default:
		errs = append(errs, fmt.Errorf("face mode %q: want grpc, http or none", c.Face.Mode))
	}
	if c.Detection.MaxTextLength <= 0 {
		errs = append(errs, errors.New("max text length must be positive"))
	}
	if c.Retention.Days < 0 {
		errs = append(errs, errors.New("retention days cannot be negative"))
	}
	return errors.Join(errs...)
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DB.Driver == "sqlite3" {
		return c.DB.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

// DSNForLog is DSN with the password masked.
func (c *Config) DSNForLog() string {
	if c.DB.Driver == "sqlite3" {
		return c.DB.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) IsDev() bool {
	return c.Log.Environment == "dev"
}

// String renders the configuration for the startup log with secrets masked.
func (c *Config) String() string {
	out, err := conf.String(c)
	if err != nil {
		return err.Error()
	}
	return out
}
