package logger

import (
	"os"
	"runtime"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"`
	Format     string            `json:"format"      yaml:"format"` // json, text, console
	Output     string            `json:"output"      yaml:"output"` // stdout, stderr, file, discard
	FilePath   string            `json:"file_path"   yaml:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"` // days
	Compress   bool              `json:"compress"    yaml:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"` // static fields for k8s/docker
}

// GetDefaultFields collects host and orchestrator metadata attached to
// every log line.
func GetDefaultFields() map[string]string {
	hostname, _ := os.Hostname()

	fields := map[string]string{
		"hostname":   hostname,
		"go_version": runtime.Version(),
	}

	envFields := map[string]string{
		"KUBERNETES_NAMESPACE": "k8s_namespace",
		"KUBERNETES_POD_NAME":  "k8s_pod",
		"KUBERNETES_NODE_NAME": "k8s_node",
		"DOCKER_IMAGE":         "docker_image",
		"APP_NAME":             "app_name",
		"APP_VERSION":          "app_version",
	}
	for env, key := range envFields {
		if v := os.Getenv(env); v != "" {
			fields[key] = v
		}
	}

	return fields
}

func NewDefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     "console", // Default to console for development
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     GetDefaultFields(),
	}
}

// NewConfig builds a logger config from the service settings, falling back
// to the defaults for anything left empty.
func NewConfig(level, format, output, filePath, environment string) (*Config, error) {
	cfg := NewDefaultConfig()

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl

	if format != "" {
		cfg.Format = format
	}
	if output != "" {
		cfg.Output = output
	}
	cfg.FilePath = filePath
	if environment != "" {
		cfg.Fields["environment"] = environment
	}

	return cfg, nil
}
