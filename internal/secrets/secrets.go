// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys.
//
// Keys come from a directory of plain-text files (the filename is the key
// name, the trimmed contents its value), from a dotenv file, from the
// process environment and from configuration. Supported key files are
// <provider>-api-key for every provider, with dashes in place of
// underscores (for example semantic-scholar-api-key), plus openalex-email.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment variables holding API keys:
// LIBRARY_QUERIER_<PROVIDER>_API_KEY.
const EnvPrefix = "LIBRARY_QUERIER_"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged to log and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, eris.Wrapf(err, "reading secrets directory %s", dir)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv parses a dotenv file without modifying the process environment.
// A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, eris.Wrapf(err, "reading %s", path)
	}
	return vars, nil
}

// Sources holds every place a key may come from, lowest precedence first.
type Sources struct {
	// Config maps provider names to keys from the configuration file.
	Config map[string]string

	// Files is the result of Load.
	Files map[string]string

	// DotEnv is the result of LoadEnv.
	DotEnv map[string]string

	// Environ looks up process environment variables; nil means os.LookupEnv.
	Environ func(key string) (string, bool)
}

// KeyFile returns the secrets file name for provider.
func KeyFile(provider string) string {
	return strings.ReplaceAll(provider, "_", "-") + "-api-key"
}

// EnvVar returns the environment variable name for provider.
func EnvVar(provider string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
}

// aliases lists extra key file names accepted for a provider.
var aliases = map[string][]string{
	"openalex": {"openalex-email"},
}

// Resolve returns the key for each provider that has one. Process
// environment overrides the dotenv file, which overrides the secrets
// directory, which overrides configuration.
func (s Sources) Resolve(providers []string) map[string]string {
	environ := s.Environ
	if environ == nil {
		environ = os.LookupEnv
	}

	keys := make(map[string]string)
	for _, p := range providers {
		var value string
		if v := strings.TrimSpace(s.Config[p]); v != "" {
			value = v
		}
		for _, name := range append(aliases[p], KeyFile(p)) {
			if v := s.Files[name]; v != "" {
				value = v
			}
		}
		if v := strings.TrimSpace(s.DotEnv[EnvVar(p)]); v != "" {
			value = v
		}
		if v, ok := environ(EnvVar(p)); ok && strings.TrimSpace(v) != "" {
			value = strings.TrimSpace(v)
		}
		if value != "" {
			keys[p] = value
		}
	}
	return keys
}
