package imports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// Summary is the user facing outcome of a job.
type Summary struct {
	JobID              string             `json:"job_id"`
	PriceListID        string             `json:"price_list_id"`
	Status             enums.ImportStatus `json:"status"`
	Step               enums.ImportStep   `json:"step,omitempty"`
	Fraction           float64            `json:"fraction"`
	Message            string             `json:"message"`
	Created            int                `json:"created"`
	Updated            int                `json:"updated"`
	UpdatedIdentifiers []string           `json:"updated_identifiers"`
	Skipped            int                `json:"skipped"`
	SkippedIdentifiers []string           `json:"skipped_identifiers"`
	SkippedRows        []SkippedRow       `json:"skipped_rows"`
	Failure            *Failure           `json:"failure,omitempty"`
}

func Summarize(job *JobContext) Summary {
	skipped := job.Results.Skipped
	if skipped == nil {
		skipped = []SkippedRow{}
	}
	updated := job.Results.UpdatedIdentifiers
	if updated == nil {
		updated = []string{}
	}
	return Summary{
		JobID:              job.ID.String(),
		PriceListID:        job.PriceListID.String(),
		Status:             job.Status,
		Step:               job.CurrentStep(),
		Fraction:           job.Fraction,
		Message:            job.Message,
		Created:            job.Results.Created,
		Updated:            job.Results.Updated,
		UpdatedIdentifiers: updated,
		Skipped:            len(skipped),
		SkippedIdentifiers: job.Results.SkippedIdentifiers(),
		SkippedRows:        skipped,
		Failure:            job.Failure,
	}
}

// FinishMessage describes a finished job: counts on success, the failing step and its
// arguments on failure.
func FinishMessage(job *JobContext) string {
	if job.Failure != nil {
		return fmt.Sprintf("An error occurred while processing %s with arguments: %s", job.Failure.Step, formatArgs(job.Failure.Args))
	}
	r := job.Results
	msg := fmt.Sprintf("Created %d, updated %d and skipped %d price list items.", r.Created, r.Updated, len(r.Skipped))
	if ids := r.SkippedIdentifiers(); len(ids) > 0 {
		msg += " Skipped: " + strings.Join(ids, ", ") + "."
	}
	return msg
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
