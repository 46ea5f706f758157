package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
)

// retryAfterSeconds is advertised on retryable 503s so tills back off before
// resubmitting with the same idempotency key.
const retryAfterSeconds = "2"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   typed.PublicMessage(),
			RequestID: w.Header().Get("X-Request-Id"),
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)

		fields := map[string]any{
			"error":       dump.TopMessage,
			"error_code":  dump.Code,
			"error_chain": dump.Chain,
		}
		if dump.Gorm != "" {
			fields["gorm_error"] = dump.Gorm
		}
		if dump.DB.Code != "" {
			fields["db_code"] = dump.DB.Code
			fields["db_table"] = dump.DB.Table
			fields["db_constraint"] = dump.DB.Constraint
			fields["db_detail"] = dump.DB.Detail
		}

		if shortages, ok := pkgerrors.Shortages(err); ok {
			names := make([]string, 0, len(shortages))
			for _, s := range shortages {
				names = append(names, s.IngredientName)
			}
			fields["short_ingredients"] = names
		}

		ctx = logg.WithFields(ctx, fields)
		// client faults and stock outcomes are expected traffic
		if meta.HTTPStatus < http.StatusInternalServerError {
			logg.Warn(ctx, "request.rejected")
		} else {
			logg.Error(ctx, "request.error", err)
		}
	}

	if meta.Retryable && meta.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
