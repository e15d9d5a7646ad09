package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/api/validators"
	"github.com/angelmondragon/pricelist-backend/internal/imports"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const multipartMemory = 8 << 20

// ImportService starts and drives price list imports.
type ImportService interface {
	StartImport(ctx context.Context, input imports.StartInput) (*imports.JobContext, error)
	Status(ctx context.Context, jobID uuid.UUID) (*imports.JobContext, error)
	Advance(ctx context.Context, jobID uuid.UUID) (*imports.JobContext, error)
}

// ImportStart accepts a multipart CSV upload for the {priceListId} list and queues a job.
func ImportStart(svc ImportService, lists PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := ownedPriceList(r, lists)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart form required"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		opts, err := importOptionsFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := imports.StartInput{PriceListID: detail.List.ID, Options: opts}
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			input.Upload = file
			input.Filename = header.Filename
		case err != http.ErrMissingFile:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file upload"))
			return
		}

		ctx := logg.WithUserID(r.Context(), middleware.UserIDFromContext(r.Context()))
		job, err := svc.StartImport(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, imports.Summarize(job))
	}
}

// ImportStatus reports the progress of {jobId}.
func ImportStatus(svc ImportService, lists PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedJob(r, svc, lists)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, imports.Summarize(job))
	}
}

// ImportAdvance runs one invocation of {jobId} and returns the updated progress.
func ImportAdvance(svc ImportService, lists PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedJob(r, svc, lists)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithJobID(r.Context(), job.ID.String())
		job, err = svc.Advance(ctx, job.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, imports.Summarize(job))
	}
}

func importOptionsFromForm(r *http.Request) (imports.Options, error) {
	field := func(key string) string {
		return strings.TrimSpace(r.FormValue(key))
	}
	opts := imports.Options{
		Mapping: imports.Mapping{
			IdentifierColumn: field("identifier_column"),
			PriceColumn:      field("price_column"),
			ListPriceColumn:  field("list_price_column"),
			QuantityColumn:   field("quantity_column"),
		},
		IdentifierField: enums.IdentifierField(field("identifier_field")),
		Strategy:        enums.ImportStrategy(field("strategy")),
	}
	if raw := field("purge"); raw != "" {
		purge, err := strconv.ParseBool(raw)
		if err != nil {
			return imports.Options{}, pkgerrors.New(pkgerrors.CodeValidation, "purge must be a boolean").
				WithDetails(map[string]any{"field": "purge"})
		}
		opts.Purge = purge
	}
	return opts, nil
}

// ownedJob loads {jobId} and checks that its price list belongs to the active store.
func ownedJob(r *http.Request, svc ImportService, lists PriceListService) (*imports.JobContext, error) {
	storeID, err := activeStoreID(r)
	if err != nil {
		return nil, err
	}
	jobID, err := validators.ParsePathUUID(chi.URLParam(r, "jobId"), "jobId")
	if err != nil {
		return nil, err
	}
	job, err := svc.Status(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	detail, err := lists.Get(r.Context(), job.PriceListID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, err
	}
	if detail.List.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
	}
	return job, nil
}
