package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

func paramError(source, field, msg string, extra map[string]any) error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, source+" parameter "+msg).WithDetails(details)
}

// queryValue returns the trimmed query value and whether it was supplied.
func queryValue(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

// ParseQueryInt reads an integer in [min, max], falling back to defaultVal when absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, paramError("query", key, "must be an integer", nil)
	}
	if value < min || value > max {
		return 0, paramError("query", key, "out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryDecimal reads a strictly positive decimal, falling back to defaultVal.
func ParseQueryDecimal(r *http.Request, key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return defaultVal, nil
	}
	value, err := decimal.NewFromString(raw)
	switch {
	case err != nil:
		return decimal.Zero, paramError("query", key, "must be a number", nil)
	case !value.IsPositive():
		return decimal.Zero, paramError("query", key, "must be positive", nil)
	}
	return value, nil
}

// ParsePathUUID validates a chi URL parameter already read by the caller.
func ParsePathUUID(raw, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, paramError("path", key, "must be a uuid", nil)
	}
	return id, nil
}
