package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramBot struct {
		Token string `yaml:"token"`
		Debug bool   `yaml:"debug"`
	} `yaml:"telegram_bot"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Banks struct {
		Dir string `yaml:"dir"`
	} `yaml:"banks"`
	Selection struct {
		Mode                 string `yaml:"mode"`
		SubsetSize           int    `yaml:"subset_size"`
		PerQuestionTimeLimit string `yaml:"per_question_time_limit"`
	} `yaml:"selection"`
	Admin struct {
		IDs      []int64 `yaml:"ids"`
		HTTPAddr string  `yaml:"http_addr"`
		Token    string  `yaml:"token"`
	} `yaml:"admin"`
}

// LoadConfig читает YAML-конфигурацию и накладывает переопределения из
// переменных окружения. Файл .env, если он есть рядом с процессом,
// подхватывается автоматически; секреты в YAML класть не обязательно.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(config)
	return config, nil
}

// applyEnv накладывает переменные окружения поверх значений из файла.
func applyEnv(c *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.TelegramBot.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("BANKS_DIR"); v != "" {
		c.Banks.Dir = v
	}
	if v := os.Getenv("ADMIN_HTTP_ADDR"); v != "" {
		c.Admin.HTTPAddr = v
	}
	if v := os.Getenv("ADMIN_HTTP_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		c.Admin.IDs = parseIDs(v)
	}
}

// parseIDs разбирает список идентификаторов через запятую; мусорные
// элементы пропускаются.
func parseIDs(raw string) []int64 {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Duration разбирает строку длительности, возвращая fallback для пустой
// или некорректной строки.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
