package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Result is one migration touched or inspected by a command.
type Result struct {
	Version int64
	Path    string
	State   string
	Took    time.Duration
}

func (r Result) String() string {
	if r.Took > 0 {
		return fmt.Sprintf("%-8s %d %s (%s)", r.State, r.Version, r.Path, r.Took.Round(time.Millisecond))
	}
	return fmt.Sprintf("%-8s %d %s", r.State, r.Version, r.Path)
}

// gooseDialect maps a db client dialect name to the goose dialect.
func gooseDialect(name string) (goose.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres":
		return goose.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", name)
	}
}

func provider(db *sql.DB, dialect, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	d, err := gooseDialect(dialect)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(d, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Run executes up, down or status against dir.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string) ([]Result, error) {
	p, err := provider(db, dialect, dir)
	if err != nil {
		return nil, err
	}
	switch command {
	case "up":
		applied, err := p.Up(ctx)
		return results(applied), wrapCommand(command, err)
	case "down":
		reverted, err := p.Down(ctx)
		if reverted == nil {
			return nil, wrapCommand(command, err)
		}
		return results([]*goose.MigrationResult{reverted}), wrapCommand(command, err)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return nil, wrapCommand(command, err)
		}
		out := make([]Result, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, Result{Version: s.Source.Version, Path: s.Source.Path, State: string(s.State)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until targetVersion is the latest applied.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir, targetVersion string) ([]Result, error) {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	p, err := provider(db, dialect, dir)
	if err != nil {
		return nil, err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		applied, err := p.UpTo(ctx, target)
		return results(applied), wrapCommand(fmt.Sprintf("up-to %d", target), err)
	default:
		reverted, err := p.DownTo(ctx, target)
		return results(reverted), wrapCommand(fmt.Sprintf("down-to %d", target), err)
	}
}

func results(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		state := r.Direction
		if r.Error != nil {
			state = "failed"
		}
		out = append(out, Result{Version: r.Source.Version, Path: r.Source.Path, State: state, Took: r.Duration})
	}
	return out
}

func wrapCommand(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
