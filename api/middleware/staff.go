package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kitchenstock-backend/api/responses"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
)

const staffIDHeader = "X-Staff-Id"

// RequireStaff rejects requests that do not identify the acting staff member.
// Authentication happens upstream at the POS gateway; this only carries the actor.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffID := strings.TrimSpace(r.Header.Get(staffIDHeader))
			if staffID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "X-Staff-Id header required"))
				return
			}
			ctx := WithStaffID(r.Context(), staffID)
			if logg != nil {
				ctx = logg.WithActor(ctx, staffID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
