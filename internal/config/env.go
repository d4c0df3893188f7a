package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in priority order: a key set in an earlier file is not
// overridden by a later one, and values already in the process environment win.
var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads KEY=VALUE pairs from every existing .env file and returns
// the names it loaded. Missing files are skipped.
func LoadEnvFiles() ([]string, error) {
	var found []string
	for _, name := range envFiles {
		if _, err := os.Stat(name); err == nil {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(found...); err != nil {
		return nil, err
	}
	return found, nil
}

// ResolveToken returns the configured remote token, falling back to GITHUB_TOKEN.
func (r RemoteConfig) ResolveToken() string {
	if r.Token != "" {
		return r.Token
	}
	return os.Getenv("GITHUB_TOKEN")
}

// ResolveSecret returns the webhook secret, falling back to WEBHOOK_SECRET.
func (w WebhookConfig) ResolveSecret() string {
	if w.Secret != "" {
		return w.Secret
	}
	return os.Getenv("WEBHOOK_SECRET")
}

// ResolveAPIKey returns the manual-trigger key, falling back to SYNC_API_KEY.
func (s ServerConfig) ResolveAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	return os.Getenv("SYNC_API_KEY")
}
