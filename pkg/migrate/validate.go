package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir for a well formed name, a unique
// version and both goose sections. All problems are reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var problems error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := sqlFileRe.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := versions[match[1]]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name))
		}
		versions[match[1]] = name
		problems = multierr.Append(problems, checkSections(filepath.Join(dir, name)))
	}
	return problems
}

func checkSections(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	text := string(body)
	var problems error
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(text, marker) {
			problems = multierr.Append(problems, fmt.Errorf("migration %q missing %q", filepath.Base(path), marker))
		}
	}
	return problems
}
