package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathEnv overrides the config file location when set.
const PathEnv = "WHATMOVIE_CONFIG"

// Load reads config/<env>.yaml, or the file named by WHATMOVIE_CONFIG.
func Load(env string) (Config, error) {
	path, err := locate(env)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands ${VAR} and ${VAR:-default} references, decodes the YAML,
// fills defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.Expand(string(data), lookupEnv)), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// lookupEnv resolves one reference for os.Expand. An unset or empty
// variable takes the default after ":-".
func lookupEnv(ref string) string {
	name, fallback, _ := strings.Cut(ref, ":-")
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// locate tries the working directory first, then the module root so tests
// and go run from any package find the same files.
func locate(env string) (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}

	name := filepath.Join("config", env+".yaml")
	candidates := []string{name}
	if _, file, _, ok := runtime.Caller(0); ok {
		root := filepath.Join(filepath.Dir(file), "..", "..")
		candidates = append(candidates, filepath.Join(root, name))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", c, err)
		}
	}
	return "", fmt.Errorf("no config for environment %q (looked in %s)", env, strings.Join(candidates, ", "))
}
