package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where wellspring stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI suggestion provider configuration
	AIEnabled    bool    // WELLSPRING_AI_ENABLED
	AIBaseURL    string  // WELLSPRING_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey     string  // WELLSPRING_AI_API_KEY
	AIModel      string  // WELLSPRING_AI_MODEL (default: gpt-4o-mini)
	AIRateLimit  float64 // WELLSPRING_AI_RATE_LIMIT, requests per second (default: 1)
	AIMaxRetries int     // WELLSPRING_AI_MAX_RETRIES (default: 2)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the suggestion provider is enabled and an API
// key is configured. The engine runs fully rule-based without it.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads AI provider configuration from WELLSPRING_* environment
// variables. Flag-bound fields (mode, port, driver, dsn) are handled by the
// command layer.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("WELLSPRING_AI_ENABLED") == "true"
	p.AIBaseURL = getEnvOrDefault("WELLSPRING_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("WELLSPRING_AI_API_KEY")
	p.AIModel = getEnvOrDefault("WELLSPRING_AI_MODEL", "gpt-4o-mini")

	p.AIRateLimit = 1
	if v := os.Getenv("WELLSPRING_AI_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			p.AIRateLimit = parsed
		}
	}

	p.AIMaxRetries = 2
	if v := os.Getenv("WELLSPRING_AI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			p.AIMaxRetries = parsed
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("wellspring_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
