package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var fileRe = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)

// Validate checks every .sql file in dir for the expected filename shape and
// for both goose direction markers. All problems are reported at once.
func Validate(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var errs error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if !fileRe.MatchString(entry.Name()) {
			errs = multierr.Append(errs, fmt.Errorf("%s: filename must be <timestamp>_<name>.sql", entry.Name()))
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		content := string(raw)
		if !strings.Contains(content, "-- +goose Up") {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing -- +goose Up marker", entry.Name()))
		}
		if !strings.Contains(content, "-- +goose Down") {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing -- +goose Down marker", entry.Name()))
		}
	}
	return errs
}
