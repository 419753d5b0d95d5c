package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

func init() {
	ServiceConfig = New()
}

var ServiceConfig *Config

type Config struct {
	Port           string
	ConsulAddress  string
	ServiceName    string
	ServiceID      string
	ServiceAddress string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	RabbitMQURI string

	JWTSecret string

	DefaultPageLimit int
	MaxPageLimit     int
}

func New() *Config {
	return &Config{
		Port:           getEnv("PORT", "9360"),
		ConsulAddress:  "consul-server:" + getEnv("CONSUL_PORT", "8500"),
		ServiceName:    getEnv("SHARING_SERVICE_NAME", "sharing-service"),
		ServiceID:      getEnv("SHARING_SERVICE_NAME", "sharing-service") + "-" + getEnv("HOSTNAME", "1"),
		ServiceAddress: getEnv("SHARING_SERVICE_ADDRESS", "sharing-service"),
		ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),

		RabbitMQURI: getEnv("RABBITMQ_URI", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		DefaultPageLimit: getEnvAsInt("DEFAULT_PAGE_LIMIT", 10),
		MaxPageLimit:     getEnvAsInt("MAX_PAGE_LIMIT", 100),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Error Retriving ENV: %s not exist", key)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
