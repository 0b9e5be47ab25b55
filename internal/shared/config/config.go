package config

import (
	"fmt"
	"os"
	"strings"

	"finpull/internal/domain/extract"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Graph       GraphConfig
	Telemetry   TelemetryConfig
	Credentials *extract.Credentials
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type StorageConfig struct {
	Dir string
}

type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

// LoadCredentials reads the extraction credentials from the environment.
// Empty-string secrets count as absent. Pure read, no network.
func LoadCredentials(environment string) (*extract.Credentials, error) {
	env, err := extract.ParseEnvironment(environment)
	if err != nil {
		return nil, err
	}

	clientID := strings.TrimSpace(os.Getenv("CLIENT_ID"))
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing required env var CLIENT_ID", extract.ErrConfig)
	}
	secret := strings.TrimSpace(os.Getenv("CLIENT_SECRET"))
	if secret == "" {
		return nil, fmt.Errorf("%w: missing required env var CLIENT_SECRET", extract.ErrConfig)
	}

	return &extract.Credentials{
		ClientID:    clientID,
		Secret:      secret,
		Environment: env,
		TenantID:    strings.TrimSpace(os.Getenv("TENANT_ID")),
	}, nil
}

// Load builds the full service configuration. The extraction credentials
// are required; everything else has defaults.
func Load() (*Config, error) {
	creds, err := LoadCredentials(getEnv("ENVIRONMENT", string(extract.EnvSandbox)))
	if err != nil {
		return nil, err
	}

	// Parse allowed hosts (comma-separated list)
	var allowedHosts []string
	for _, host := range strings.Split(getEnv("ALLOWED_HOSTS", ""), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			allowedHosts = append(allowedHosts, host)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "storage"),
		},
		Graph: GraphConfig{
			TenantID:     getEnv("TENANT_ID", ""),
			ClientID:     getEnv("GRAPH_CLIENT_ID", ""),
			ClientSecret: getEnv("GRAPH_CLIENT_SECRET", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "finpull-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4318"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
		Credentials: creds,
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
