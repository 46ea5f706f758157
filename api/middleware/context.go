package middleware

import "context"

type contextKey string

const (
	ctxStaffID   contextKey = "staff_id"
	ctxRequestID contextKey = "request_id"
)

// StaffIDFromContext returns the staff identifier attached by RequireStaff.
func StaffIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStaffID)
}

// WithStaffID injects the staff identifier into the context.
func WithStaffID(ctx context.Context, staffID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStaffID, staffID)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRequestID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRequestID, requestID)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
