package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by session.backend and results.backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Telegram struct {
		Token       string `yaml:"token"`
		APIURL      string `yaml:"api_url"`
		PollTimeout string `yaml:"poll_timeout"`
		Workers     int    `yaml:"workers"`
	} `yaml:"telegram"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		Color bool   `yaml:"color"`
	} `yaml:"log"`
	Catalog struct {
		Path      string `yaml:"path"`
		AssetsDir string `yaml:"assets_dir"`
	} `yaml:"catalog"`
	Session struct {
		Backend     string `yaml:"backend"`
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"session"`
	Results struct {
		Backend    string `yaml:"backend"`
		Path       string `yaml:"path"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"results"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
}

// Default returns the settings used when neither the file nor the environment set a key.
func Default() Config {
	cfg := Config{}
	cfg.Telegram.APIURL = "https://api.telegram.org"
	cfg.Telegram.PollTimeout = "30s"
	cfg.Telegram.Workers = 8
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Session.Backend = BackendMemory
	cfg.Results.Backend = BackendFile
	cfg.Results.Path = "results.json"
	cfg.Results.SQLitePath = "results.db"
	cfg.Mongo.Database = "quiz_bot"
	cfg.AMQP.Exchange = "quiz.events"
	return cfg
}

// Load reads YAML config from path on top of Default and applies environment
// overrides. A missing file is not an error: the bot can run from the environment alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("RESULTS_PATH"); v != "" {
		cfg.Results.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RESULTS_BACKEND"); v != "" {
		cfg.Results.Backend = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("BOT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOT_WORKERS: %w", err)
		}
		cfg.Telegram.Workers = n
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
