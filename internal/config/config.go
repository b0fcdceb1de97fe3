package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultServer is the production relay endpoint.
const DefaultServer = "https://clawchat-server-production.up.railway.app"

// Config holds configuration for the client CLI and the dev relay.
type Config struct {
	// Client side
	Server    string // relay base URL (CLAWCHAT_SERVER)
	Token     string // bearer token override (CLAWCHAT_TOKEN)
	ConfigDir string // local state directory (CLAWCHAT_CONFIG)

	// Dev relay side
	Port string
	Env  string
}

// Load reads configuration from the environment. A .env file is loaded
// first if present (development convenience).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server:    getEnv("CLAWCHAT_SERVER", DefaultServer),
		Token:     os.Getenv("CLAWCHAT_TOKEN"),
		ConfigDir: getEnv("CLAWCHAT_CONFIG", defaultConfigDir()),
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
	}
}

// IsDevelopment reports whether the dev relay runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawchat"
	}
	return filepath.Join(home, ".config", "clawchat")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
