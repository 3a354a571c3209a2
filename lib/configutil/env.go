package configutil

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given dotenv files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		_, err := os.Stat(f)
		if os.IsNotExist(err) {
			continue
		}
		err = godotenv.Load(f)
		if err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		slog.Debug("loaded env file", "file", f)
	}
	return nil
}

// RequireEnv returns the values of the given environment variables in order, failing on
// the first one that is empty.
func RequireEnv(keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	for i, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			return nil, fmt.Errorf("environment variable %s is not set", k)
		}
		values[i] = v
	}
	return values, nil
}
