package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a pipeline configuration from a YAML file, substitutes
// ${VAR} and ${VAR:default} references from the environment, validates it
// and fills in defaults.
func LoadFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: file path is controlled by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:default} with
// environment variable values.
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		ref := content[start+2 : end]
		name, fallback := ref, ""
		if i := strings.IndexByte(ref, ':'); i >= 0 {
			name, fallback = ref[:i], ref[i+1:]
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			value = fallback
		}
		content = content[:start] + value + content[end+1:]
	}
	return content
}
