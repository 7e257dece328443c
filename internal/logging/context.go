package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldInstanceID is the standardized structured logging key for work instance identifiers.
	FieldInstanceID = "instance_id"
	// FieldWorkType is the standardized structured logging key for work type names.
	FieldWorkType = "work_type"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldLocation is the standardized structured logging key for dataset locations.
	FieldLocation = "location"
	// FieldCorrelationID is the standardized structured logging key for execution correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey string

const (
	instanceIDKey    contextKey = "instance_id"
	workTypeKey      contextKey = "work_type"
	stepKey          contextKey = "step"
	correlationIDKey contextKey = "correlation_id"
)

// WithInstanceID annotates context with the work instance identifier.
func WithInstanceID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, instanceIDKey, id)
}

// InstanceIDFromContext extracts the work instance identifier if present.
func InstanceIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(instanceIDKey).(int64)
	return id, ok
}

// WithWorkType annotates context with the canonical work type name.
func WithWorkType(ctx context.Context, workType string) context.Context {
	if workType == "" {
		return ctx
	}
	return context.WithValue(ctx, workTypeKey, workType)
}

// WorkTypeFromContext returns the work type name if present.
func WorkTypeFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(workTypeKey).(string)
	return v, ok && v != ""
}

// WithStep annotates context with the current pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the pipeline step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(stepKey).(string)
	return v, ok && v != ""
}

// WithCorrelationID annotates context with an execution correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(correlationIDKey).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := InstanceIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldInstanceID, id))
	}
	if workType, ok := WorkTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkType, workType))
	}
	if step, ok := StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if cid, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, cid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
