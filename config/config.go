// Package config loads Provider definitions from environment variables,
// optionally pre-populated from a .env file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kestrelhq/conduct/provider"
)

// LoadEnvFile loads key=value pairs from a .env file into the process
// environment, in priority order .env.local (highest) then .env. A missing
// file is not an error.
func LoadEnvFile() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: loading %s: %w", name, err)
		}
	}
	return nil
}

// LoadProviders scans the environment for <prefix>_<NAME>_API_KEY /
// <prefix>_<NAME>_KIND / <prefix>_<NAME>_BASE_URL triples and builds one
// Provider per distinct NAME found. KIND must be one of "openai",
// "anthropic", or "google" (case-insensitive); BASE_URL is optional.
func LoadProviders(prefix string) ([]provider.Provider, error) {
	apiKeySuffix := "_API_KEY"
	names := map[string]bool{}
	keyPrefix := prefix + "_"

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, apiKeySuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), apiKeySuffix)
		if name != "" {
			names[name] = true
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	providers := make([]provider.Provider, 0, len(sorted))
	for _, name := range sorted {
		apiKey := os.Getenv(keyPrefix + name + "_API_KEY")
		kindStr := os.Getenv(keyPrefix + name + "_KIND")
		kind, err := parseKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("config: provider %q: %w", name, err)
		}

		p := provider.New(strings.ToLower(name), kind, apiKey)
		if baseURL := os.Getenv(keyPrefix + name + "_BASE_URL"); baseURL != "" {
			p = p.WithBaseURL(baseURL)
		}
		providers = append(providers, p)
	}

	return providers, nil
}

func parseKind(s string) (provider.Kind, error) {
	switch strings.ToLower(s) {
	case "openai":
		return provider.KindOpenAI, nil
	case "anthropic":
		return provider.KindAnthropic, nil
	case "google":
		return provider.KindGoogle, nil
	default:
		return "", fmt.Errorf("unknown provider kind %q", s)
	}
}
