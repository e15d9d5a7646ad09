package enums

import "fmt"

// ImportStrategy decides what happens when a row matches an item already on the list.
type ImportStrategy string

const (
	ImportStrategyUpdateExisting ImportStrategy = "update_existing"
	ImportStrategySkipExisting   ImportStrategy = "skip_existing"
)

const DefaultImportStrategy = ImportStrategyUpdateExisting

var validImportStrategies = []ImportStrategy{
	ImportStrategyUpdateExisting,
	ImportStrategySkipExisting,
}

// String implements fmt.Stringer.
func (s ImportStrategy) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ImportStrategy.
func (s ImportStrategy) IsValid() bool {
	for _, candidate := range validImportStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseImportStrategy converts raw input into an ImportStrategy. Empty input yields the default.
func ParseImportStrategy(value string) (ImportStrategy, error) {
	if value == "" {
		return DefaultImportStrategy, nil
	}
	for _, candidate := range validImportStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid import strategy %q", value)
}

// ImportStep names a stage of the import pipeline.
type ImportStep string

const (
	ImportStepPurge   ImportStep = "purge"
	ImportStepRows    ImportStep = "import_rows"
	ImportStepCleanup ImportStep = "cleanup"
)

// String implements fmt.Stringer.
func (s ImportStep) String() string {
	return string(s)
}

// ImportStatus tracks the lifecycle of an import job.
type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// String implements fmt.Stringer.
func (s ImportStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further invocations will run for the job.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}
