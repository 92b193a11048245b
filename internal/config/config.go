package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	StoreDriver string
	LockDriver  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CartTTL       time.Duration
	SweepInterval time.Duration

	CORSOrigins []string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        os.Getenv("DB_PORT"),
		AppPort:       envOr("APP_PORT", "8080"),
		AppEnv:        os.Getenv("APP_ENV"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StoreDriver:   envOr("STORE_DRIVER", StoreDriverPostgres),
		LockDriver:    envOr("LOCK_DRIVER", LockDriverLocal),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CartTTL:       time.Duration(envInt("CART_TTL_HOURS", 24*30)) * time.Hour,
		SweepInterval: time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
		CORSOrigins:   envList("CORS_ORIGINS"),
	}

	if cfg.StoreDriver == StoreDriverPostgres && cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}
	if cfg.LockDriver == LockDriverRedis && cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required when LOCK_DRIVER=redis")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

// envList splits a comma separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
