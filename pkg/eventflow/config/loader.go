package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
)

// FromFile loads a .yaml, .yml or .json file. Environment references are
// expanded before parsing.
func FromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	data := []byte(os.ExpandEnv(string(raw)))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// LoadEnv loads .env style files into the process environment so FromFile
// can expand their variables. Variables already set are kept, and missing
// files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// FromFileWithEnv loads envFiles with LoadEnv and then reads path.
func FromFileWithEnv(path string, envFiles ...string) (Config, error) {
	if err := LoadEnv(envFiles...); err != nil {
		return Config{}, err
	}
	return FromFile(path)
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := codec.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}
