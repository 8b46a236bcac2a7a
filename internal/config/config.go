// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var schemaName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Config struct {
	ServiceVersion string
	Port           string

	PostgresURL    string
	DBSchema       string
	MigrationsPath string

	KafkaBrokers []string
	KafkaGroupID string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ReservationWindow time.Duration
	OTLPEndpoint      string
}

// Load reads the environment, applies defaults and rejects invalid values.
func Load() (Config, error) {
	cfg := Config{
		ServiceVersion:    envDefault("SERVICE_VERSION", "dev"),
		Port:              envDefault("PORT", "8081"),
		PostgresURL:       strings.TrimSpace(os.Getenv("POSTGRES_URL")),
		DBSchema:          envDefault("DB_SCHEMA", "orders"),
		MigrationsPath:    envDefault("MIGRATIONS_PATH", "file://migrations"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID:      envDefault("KAFKA_GROUP_ID", "orders-worker"),
		RedisAddr:         envDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		ReservationWindow: 3 * time.Minute,
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return Config{}, fmt.Errorf("REDIS_DB must be a non-negative integer, got %q", raw)
		}
		cfg.RedisDB = db
	}

	if raw := strings.TrimSpace(os.Getenv("RESERVATION_WINDOW")); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil || window <= 0 {
			return Config{}, fmt.Errorf("RESERVATION_WINDOW must be a positive duration, got %q", raw)
		}
		cfg.ReservationWindow = window
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	if !schemaName.MatchString(cfg.DBSchema) {
		return Config{}, fmt.Errorf("DB_SCHEMA %q is not a valid schema name", cfg.DBSchema)
	}

	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
