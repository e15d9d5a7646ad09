package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

type listLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.PriceList, error)
}

type currencyLookup interface {
	DefaultCurrency(ctx context.Context, storeID uuid.UUID) (enums.Currency, error)
}

// ServiceParams wires the import service.
type ServiceParams struct {
	Lists          listLookup
	Stores         currencyLookup
	Store          JobStore
	Enqueuer       Enqueuer
	Runner         *Runner
	Logger         *logger.Logger
	UploadDir      string
	BatchSize      int
	MaxUploadBytes int64
}

// Service starts import jobs and reports their progress.
type Service struct {
	lists     listLookup
	stores    currencyLookup
	store     JobStore
	enqueuer  Enqueuer
	runner    *Runner
	logg      *logger.Logger
	uploadDir string
	batchSize int
	maxBytes  int64
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Lists == nil {
		return nil, errors.New("price list lookup required")
	}
	if params.Stores == nil {
		return nil, errors.New("store lookup required")
	}
	if params.Store == nil {
		return nil, errors.New("job store required")
	}
	if params.Runner == nil {
		return nil, errors.New("runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	enqueuer := params.Enqueuer
	if enqueuer == nil {
		enqueuer = NewLogNotifier(logg)
	}
	uploadDir := params.UploadDir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Service{
		lists:     params.Lists,
		stores:    params.Stores,
		store:     params.Store,
		enqueuer:  enqueuer,
		runner:    params.Runner,
		logg:      logg,
		uploadDir: uploadDir,
		batchSize: batch,
		maxBytes:  params.MaxUploadBytes,
		now:       time.Now,
	}, nil
}

// StartInput is one upload to import into a price list.
type StartInput struct {
	PriceListID uuid.UUID
	Filename    string
	Upload      io.Reader
	Options     Options
}

// StartImport validates the upload against the mapping, stages it, saves a queued job
// and hands it to the enqueuer. Nothing is written to the price list here.
func (s *Service) StartImport(ctx context.Context, input StartInput) (*JobContext, error) {
	if input.Upload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if ext := strings.ToLower(filepath.Ext(input.Filename)); input.Filename != "" && ext != ".csv" && ext != ".txt" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file must be a .csv or .txt file")
	}
	list, err := s.lists.Get(ctx, input.PriceListID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPriceListID(ctx, list.ID.String())
	currency, err := s.stores.DefaultCurrency(ctx, list.StoreID)
	if err != nil {
		return nil, err
	}

	path, err := s.stage(input.Upload)
	if err != nil {
		return nil, err
	}
	discard := func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logg.Warn(s.logg.WithField(ctx, "file", path), "could not remove rejected upload")
		}
	}

	header, err := ReadHeader(path)
	if err != nil {
		discard()
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is not a readable CSV")
	}
	opts := input.Options
	if err := opts.Validate(list.PurchasableType, header); err != nil {
		discard()
		return nil, err
	}

	job := NewJobContext(list.ID, currency, path, filepath.Base(input.Filename), opts, s.batchSize, s.now().UTC())
	if job.Filename == "." || job.Filename == "" {
		job.Filename = filepath.Base(path)
	}
	claimed, err := s.store.SetActive(ctx, list.ID, job.ID)
	if err != nil {
		discard()
		return nil, err
	}
	if !claimed {
		discard()
		conflict := pkgerrors.New(pkgerrors.CodeConflict, "an import is already running for this price list")
		active, ok, err := s.store.ActiveJob(ctx, list.ID)
		if err != nil {
			s.logg.Error(ctx, "failed to look up active import job", err)
		} else if ok {
			conflict = conflict.WithDetails(map[string]any{"job_id": active.String()})
		}
		return nil, conflict
	}
	if err := s.store.Save(ctx, job); err != nil {
		discard()
		_ = s.store.ClearActive(ctx, list.ID, job.ID)
		return nil, err
	}

	ctx = s.logg.WithJobID(ctx, job.ID.String())
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		discard()
		_ = s.store.ClearActive(ctx, list.ID, job.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue import job")
	}
	s.logg.Info(ctx, "import job queued")
	return job, nil
}

// Status returns the saved job context.
func (s *Service) Status(ctx context.Context, jobID uuid.UUID) (*JobContext, error) {
	return s.store.Load(ctx, jobID)
}

// Advance runs one invocation of the job.
func (s *Service) Advance(ctx context.Context, jobID uuid.UUID) (*JobContext, error) {
	return s.runner.Advance(ctx, jobID)
}

// Run drives the job until it finishes.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID) (*JobContext, error) {
	return s.runner.RunToCompletion(ctx, jobID)
}

func (s *Service) stage(upload io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare upload directory")
	}
	file, err := os.CreateTemp(s.uploadDir, "import-*.csv")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stage upload")
	}
	src := upload
	if s.maxBytes > 0 {
		src = io.LimitReader(upload, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(file.Name())
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, multierr.Combine(copyErr, closeErr), "stage upload")
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = os.Remove(file.Name())
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	if written == 0 {
		_ = os.Remove(file.Name())
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	return file.Name(), nil
}
