package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned when no database connection string is
// configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// DefaultGuideURL is the public XMLTV aggregate used when EPG_SOURCE_URL is
// not configured.
const DefaultGuideURL = "https://epgshare01.online/epgshare01/epg_ripper_ALL_SOURCES1.xml.gz"

// Config holds application configuration.
type Config struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort  string        `yaml:"server_port" env:"SERVER_PORT"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	GuideURL     string `yaml:"guide_url" env:"EPG_SOURCE_URL"`
	GuideEnabled bool   `yaml:"guide_enabled" env:"EPG_ENABLED"`

	TMDBAPIKey string `yaml:"tmdb_api_key" env:"TMDB_API_KEY"`

	// Provider credentials for the single tenant this instance serves.
	XtreamHost     string `yaml:"xtream_host" env:"XTREAM_HOST"`
	XtreamPort     int    `yaml:"xtream_port" env:"XTREAM_PORT"`
	XtreamUsername string `yaml:"xtream_username" env:"XTREAM_USERNAME"`
	XtreamPassword string `yaml:"xtream_password" env:"XTREAM_PASSWORD"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the
// current directory first. DATABASE_URL is required; everything else has a
// default or is optional.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		BaseURL:        os.Getenv("BASE_URL"),
		UserAgent:      os.Getenv("FETCHER_USER_AGENT"),
		GuideURL:       os.Getenv("EPG_SOURCE_URL"),
		GuideEnabled:   os.Getenv("EPG_ENABLED") != "false",
		TMDBAPIKey:     os.Getenv("TMDB_API_KEY"),
		XtreamHost:     os.Getenv("XTREAM_HOST"),
		XtreamUsername: os.Getenv("XTREAM_USERNAME"),
		XtreamPassword: os.Getenv("XTREAM_PASSWORD"),
		Timeout:        30 * time.Second,
	}
	if s := os.Getenv("XTREAM_PORT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.XtreamPort = n
		}
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "7008"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:" + c.ServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = "StreamVault/1.0"
	}
	if c.GuideURL == "" {
		c.GuideURL = DefaultGuideURL
	}
	if c.XtreamPort == 0 {
		c.XtreamPort = 80
	}
}
