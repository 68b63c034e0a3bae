package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DBConfig berisi kredensial satu koneksi MariaDB/MySQL.
type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	// DB adalah database utama aplikasi booking.
	DB DBConfig
	// SIMRS adalah database registry (SIMRS Khanza) milik rumah sakit.
	SIMRS DBConfig

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL    string
	LockBackend string
	LockTimeout time.Duration
	// LockTTL adalah lease kunci Redis; diperpanjang selama kunci dipegang.
	LockTTL time.Duration

	// DefaultKdPj dipakai saat booking tidak memilih cara bayar.
	DefaultKdPj         string
	NoRegPerPoli        bool
	ReconcileWindowDays int
}

var (
	cfg  *Config
	once sync.Once
)

// LoadConfig membaca konfigurasi sekali dan mengembalikan instance yang sama.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Warn().Msg(".env file not found. Relying on environment variables.")
		}
		cfg = Load()
	})
	return cfg
}

// Load membaca konfigurasi langsung dari environment tanpa cache.
func Load() *Config {
	return &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnv("DB_PORT", "3306"),
			Name:     os.Getenv("DB_NAME"),
		},
		SIMRS: DBConfig{
			User:     os.Getenv("SIMRS_DB_USER"),
			Password: os.Getenv("SIMRS_DB_PASSWORD"),
			Host:     getEnv("SIMRS_DB_HOST", "127.0.0.1"),
			Port:     getEnv("SIMRS_DB_PORT", "3306"),
			Name:     getEnv("SIMRS_DB_NAME", "sik"),
		},
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTL:              getEnvAsDuration("JWT_TTL", 12*time.Hour),
		RedisURL:            os.Getenv("REDIS_URL"),
		LockBackend:         strings.ToLower(getEnv("LOCK_BACKEND", "local")),
		LockTimeout:         getEnvAsDuration("LOCK_TIMEOUT", 10*time.Second),
		LockTTL:             getEnvAsDuration("LOCK_TTL", 30*time.Second),
		DefaultKdPj:         getEnv("REGISTRY_DEFAULT_KD_PJ", "UMU"),
		NoRegPerPoli:        getEnvAsBool("REGISTRY_NO_REG_PER_POLI", false),
		ReconcileWindowDays: getEnvAsInt("RECONCILE_WINDOW_DAYS", 7),
	}
}

// Validate memastikan konfigurasi cukup untuk menjalankan server.
func (c *Config) Validate() error {
	if c.DB.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.SIMRS.Name == "" {
		return fmt.Errorf("SIMRS_DB_NAME is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.LockBackend {
	case "local", "mysql":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCK_BACKEND is \"redis\"")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be \"local\", \"redis\", or \"mysql\", got %q", c.LockBackend)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.LockBackend == "redis" && c.LockTTL < time.Second {
		return fmt.Errorf("LOCK_TTL must be at least 1s")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
