package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL  string `yaml:"database_url"`
	RedisURL     string `yaml:"redis_url"`
	ServerPort   string `yaml:"server_port"`
	BaseURL      string `yaml:"base_url"`
	UserAgent    string `yaml:"user_agent"`
	Timeout      string `yaml:"timeout"`
	GuideURL     string `yaml:"guide_url"`
	GuideEnabled *bool  `yaml:"guide_enabled"`
	TMDBAPIKey   string `yaml:"tmdb_api_key"`

	XtreamHost     string `yaml:"xtream_host"`
	XtreamPort     int    `yaml:"xtream_port"`
	XtreamUsername string `yaml:"xtream_username"`
	XtreamPassword string `yaml:"xtream_password"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL:    f.DatabaseURL,
		RedisURL:       f.RedisURL,
		ServerPort:     f.ServerPort,
		BaseURL:        f.BaseURL,
		UserAgent:      f.UserAgent,
		GuideURL:       f.GuideURL,
		GuideEnabled:   true,
		TMDBAPIKey:     f.TMDBAPIKey,
		XtreamHost:     f.XtreamHost,
		XtreamPort:     f.XtreamPort,
		XtreamUsername: f.XtreamUsername,
		XtreamPassword: f.XtreamPassword,
		Timeout:        30 * time.Second,
	}
	if f.GuideEnabled != nil {
		c.GuideEnabled = *f.GuideEnabled
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
