package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

const requestIDHeader = "X-Request-Id"

// fallbackBody is sent when a payload cannot be encoded.
var fallbackBody = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err as an error envelope and logs it: server errors at error
// level with the cause chain, rejected requests at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := typedOrInternal(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get(requestIDHeader),
	}
	if meta.ExposeMessage && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	logFailure(ctx, logg, meta.HTTPStatus, typed)
	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func typedOrInternal(err error) *pkgerrors.Error {
	if err == nil {
		err = errors.New("unknown error")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
}

func logFailure(ctx context.Context, logg *logger.Logger, status int, err *pkgerrors.Error) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{"http_status": status}
	if details, ok := err.Details().(map[string]any); ok {
		for _, key := range []string{"step", "job_id"} {
			if v, ok := details[key]; ok {
				fields[key] = v
			}
		}
	}
	if status >= http.StatusInternalServerError {
		fields["error_chain"] = dump.Chain
		logg.Error(logg.WithFields(ctx, fields), "request.error", err)
		return
	}
	for k, v := range dump.Fields() {
		fields[k] = v
	}
	logg.Warn(logg.WithFields(ctx, fields), "request.rejected")
}

// writeJSON encodes before writing so an encoding failure still yields a clean 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	body := fallbackBody
	if err := json.NewEncoder(&buf).Encode(payload); err == nil {
		body = buf.Bytes()
	} else {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
