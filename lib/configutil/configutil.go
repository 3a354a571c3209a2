package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LayerPaths returns the files that make up the configuration at `name`,
// lowest priority first: <name>.<ext> followed by <name>.local.<ext>.
func LayerPaths(name string) []string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return []string{name, stem + ".local" + ext}
}

// decodeLayer returns false if the file is missing or empty.
func decodeLayer[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(contents, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig decodes the json5 file at `name` and merges the fields set in its
// .local sibling over it. os.ErrNotExist is returned when neither exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	for i, path := range LayerPaths(name) {
		var layer T
		ok, err := decodeLayer(path, &layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		if i > 0 {
			slog.Info("merged local config overrides", "file", path)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up to the filesystem root
// and reads the first configuration named `name` it finds.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		cfg, err := ReadConfig[T](filepath.Join(dir, name))
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
