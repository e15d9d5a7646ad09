package imports

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// Skip reasons recorded for rows that did not produce a created or updated item.
const (
	SkipNotFound         = "not_found"
	SkipExisting         = "exists"
	SkipInvalidPrice     = "invalid_price"
	SkipInvalidListPrice = "invalid_list_price"
	SkipInvalidQuantity  = "invalid_quantity"
)

// SkippedRow records an identifier that was not imported.
type SkippedRow struct {
	Identifier string `json:"identifier"`
	Line       int    `json:"line"`
	Reason     string `json:"reason"`
}

// Results accumulates row outcomes across invocations.
type Results struct {
	Created            int          `json:"created"`
	Updated            int          `json:"updated"`
	UpdatedIdentifiers []string     `json:"updated_identifiers,omitempty"`
	Skipped            []SkippedRow `json:"skipped"`
}

// SkippedIdentifiers lists the identifiers of skipped rows in file order.
func (r Results) SkippedIdentifiers() []string {
	out := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		out = append(out, s.Identifier)
	}
	return out
}

// PurgeCursor tracks the purge step.
type PurgeCursor struct {
	Started bool `json:"started"`
	Total   int  `json:"total"`
	Deleted int  `json:"deleted"`
}

// RowCursor tracks the row import step. Total excludes the header row.
type RowCursor struct {
	Started   bool `json:"started"`
	Total     int  `json:"total"`
	Processed int  `json:"processed"`
}

// Failure names the step that aborted the job and the arguments it ran with.
type Failure struct {
	Step    enums.ImportStep `json:"step"`
	Args    map[string]any   `json:"args"`
	Message string           `json:"message"`
}

// JobContext is the resumable state of one import job. It is persisted between invocations.
type JobContext struct {
	ID          uuid.UUID          `json:"id"`
	PriceListID uuid.UUID          `json:"price_list_id"`
	Currency    enums.Currency     `json:"currency"`
	FilePath    string             `json:"file_path"`
	Filename    string             `json:"filename"`
	Options     Options            `json:"options"`
	BatchSize   int                `json:"batch_size"`
	Status      enums.ImportStatus `json:"status"`
	Steps       []enums.ImportStep `json:"steps"`
	StepIndex   int                `json:"step_index"`
	Fraction    float64            `json:"fraction"`
	Message     string             `json:"message,omitempty"`
	Purge       PurgeCursor        `json:"purge"`
	Rows        RowCursor          `json:"rows"`
	Results     Results            `json:"results"`
	Failure     *Failure           `json:"failure,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewJobContext builds a queued job. The purge step is planned only when requested.
func NewJobContext(priceListID uuid.UUID, currency enums.Currency, filePath, filename string, opts Options, batchSize int, now time.Time) *JobContext {
	steps := []enums.ImportStep{enums.ImportStepRows, enums.ImportStepCleanup}
	if opts.Purge {
		steps = append([]enums.ImportStep{enums.ImportStepPurge}, steps...)
	}
	return &JobContext{
		ID:          uuid.New(),
		PriceListID: priceListID,
		Currency:    currency,
		FilePath:    filePath,
		Filename:    filename,
		Options:     opts,
		BatchSize:   batchSize,
		Status:      enums.ImportStatusQueued,
		Steps:       steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CurrentStep returns the step the next invocation runs, or "" when none remain.
func (j *JobContext) CurrentStep() enums.ImportStep {
	if j.StepIndex < 0 || j.StepIndex >= len(j.Steps) {
		return ""
	}
	return j.Steps[j.StepIndex]
}

func (j *JobContext) Done() bool {
	return j.Status.IsTerminal()
}

func (j *JobContext) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

func UnmarshalJobContext(data []byte) (*JobContext, error) {
	var job JobContext
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode import job: %w", err)
	}
	return &job, nil
}
