package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const (
	defaultStaleUploadAge = 7 * 24 * time.Hour
	stagedUploadPattern   = "import-*.csv"
)

type StaleUploadCleanupJobParams struct {
	Logger *logger.Logger
	Dir    string
	MaxAge time.Duration
}

// NewStaleUploadCleanupJob removes staged import files that outlived their job context.
func NewStaleUploadCleanupJob(params StaleUploadCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dir == "" {
		return nil, fmt.Errorf("upload dir required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleUploadAge
	}
	return &staleUploadCleanupJob{
		logg:   params.Logger,
		dir:    params.Dir,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type staleUploadCleanupJob struct {
	logg   *logger.Logger
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

func (j *staleUploadCleanupJob) Name() string { return "stale-upload-cleanup" }

func (j *staleUploadCleanupJob) Run(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list upload dir: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	var candidates, removed, failed int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(stagedUploadPattern, entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		candidates++
		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			failed++
			j.logg.Warn(j.logg.WithField(ctx, "file", path), "could not remove stale upload")
			continue
		}
		removed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"dir":        j.dir,
		"candidates": candidates,
		"removed":    removed,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "stale upload cleanup complete")
	return removed, nil
}
