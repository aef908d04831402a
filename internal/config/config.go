package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Telegram struct {
		Token  string `yaml:"token"`
		WebURL string `yaml:"web_url"`
	} `yaml:"telegram"`
	Content struct {
		Dir     string `yaml:"dir"`
		BankTTL string `yaml:"bank_ttl"`
	} `yaml:"content"`
	Quiz struct {
		Length          int      `yaml:"length"`
		Pacing          string   `yaml:"pacing"`
		DefaultLanguage string   `yaml:"default_language"`
		Languages       []string `yaml:"languages"`
	} `yaml:"quiz"`
	Storage struct {
		ScoresPath    string `yaml:"scores_path"`
		LanguagesPath string `yaml:"languages_path"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path and fills defaults. The Telegram token
// may also come from the TELEGRAM_BOT_TOKEN environment variable.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Content.Dir == "" {
		c.Content.Dir = "content"
	}
	if c.Quiz.Length <= 0 {
		c.Quiz.Length = 5
	}
	if c.Quiz.DefaultLanguage == "" {
		c.Quiz.DefaultLanguage = "ru"
	}
	if len(c.Quiz.Languages) == 0 {
		c.Quiz.Languages = []string{"ru", "kz", "en"}
	}
	if c.Storage.ScoresPath == "" {
		c.Storage.ScoresPath = "data/scores.json"
	}
	if c.Storage.LanguagesPath == "" {
		c.Storage.LanguagesPath = "data/user_languages.json"
	}
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
