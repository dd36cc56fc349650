package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	JWTSecret  string

	// empty accepts any origin
	CORSOrigins []string

	BackendURL     string
	BackendTimeout time.Duration

	RedisAddr  string
	SessionTTL time.Duration

	// empty disables the audit trail
	DBUrl string

	ClinicTimezone    string
	LogLevel          string
	TimelineCacheSize int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "changeme"),
		CORSOrigins:       getList("CORS_ALLOWED_ORIGINS"),
		BackendURL:        getEnv("BACKEND_URL", "http://localhost:3000/api"),
		BackendTimeout:    getDuration("BACKEND_TIMEOUT", 15*time.Second),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		SessionTTL:        getDuration("SESSION_TTL", 12*time.Hour),
		DBUrl:             getEnv("DATABASE_URL", ""),
		ClinicTimezone:    getEnv("CLINIC_TIMEZONE", "America/Sao_Paulo"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TimelineCacheSize: getInt("TIMELINE_CACHE_SIZE", 512),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.ServerPort)
}

func (c *Config) AuditEnabled() bool {
	return c.DBUrl != ""
}
