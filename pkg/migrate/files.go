package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

func parseFileName(dir, base string) (File, bool) {
	m := fileNameRe.FindStringSubmatch(base)
	if m == nil {
		return File{}, false
	}
	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return File{}, false
	}
	return File{Version: version, Name: m[2], Path: filepath.Join(dir, base)}, true
}

func slug(name string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty Up/Down migration named <version>_<slug>.sql into dir.
func CreateSQLMigration(dir, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("migrations dir is required")
	}
	s := slug(name)
	if s == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}
	path := filepath.Join(dir, now.Format(versionLayout)+"_"+s+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	_, writeErr := fmt.Fprintf(f, sqlTemplate, s)
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return "", fmt.Errorf("write migration %s: %w", path, writeErr)
	}
	return path, nil
}

// ListFiles returns the .sql migrations in dir ordered by version.
// Any .sql file that does not follow the naming scheme is an error.
func ListFiles(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		f, ok := parseFileName(dir, e.Name())
		if !ok {
			return nil, fmt.Errorf("%s: expected <YYYYMMDDHHMMSS>_<name>.sql", e.Name())
		}
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b File) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	return files, nil
}

// ValidateDir checks naming, unique versions and goose annotations of every migration in dir.
func ValidateDir(dir string) error {
	files, err := ListFiles(dir)
	if err != nil {
		return err
	}
	for i, f := range files {
		if i > 0 && files[i-1].Version == f.Version {
			return fmt.Errorf("version %d used by both %s and %s", f.Version, filepath.Base(files[i-1].Path), filepath.Base(f.Path))
		}
		body, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Path, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f.Path), err)
		}
	}
	return nil
}

func checkAnnotations(sql string) error {
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("missing -- +goose Up")
	case down < 0:
		return fmt.Errorf("missing -- +goose Down")
	case down < up:
		return fmt.Errorf("-- +goose Down appears before -- +goose Up")
	}
	begins := strings.Count(sql, "-- +goose StatementBegin")
	ends := strings.Count(sql, "-- +goose StatementEnd")
	if begins != ends {
		return fmt.Errorf("%d StatementBegin but %d StatementEnd", begins, ends)
	}
	return nil
}
