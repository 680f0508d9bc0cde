package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyBatchID  contextKey = "batch_id"
	ContextKeyImageRef contextKey = "image_ref"
)

// WithBatchID adds a batch ID to the context
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch ID from context
func BatchIDFromContext(ctx context.Context) string {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return batchID
	}
	return ""
}

// WithImageRef adds the image being processed to the context
func WithImageRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ContextKeyImageRef, ref)
}

// ImageRefFromContext extracts the image reference from context
func ImageRefFromContext(ctx context.Context) string {
	if ref, ok := ctx.Value(ContextKeyImageRef).(string); ok {
		return ref
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
