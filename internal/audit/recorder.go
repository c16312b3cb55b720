// Package audit appends action records without ever failing the action that
// produced them.
package audit

import (
	"context"
	"strings"
	"time"

	"organlink/pkg/types"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 3 * time.Second

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier recorded alongside audit entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

type Appender interface {
	Append(ctx context.Context, entry *types.AuditEntry) error
}

type Recorder struct {
	appender Appender
	logger   *logrus.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewRecorder(appender Appender, logger *logrus.Logger) *Recorder {
	return &Recorder{
		appender: appender,
		logger:   logger,
		timeout:  DefaultTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record appends entry on a context that outlives request cancellation but is
// bounded by the recorder timeout. Failures are logged and dropped.
func (r *Recorder) Record(ctx context.Context, entry types.AuditEntry) {
	if strings.TrimSpace(entry.Action) == "" {
		r.logger.Warn("dropping audit entry without action")
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	if rid := RequestIDFromContext(ctx); rid != "" {
		metadata := make(map[string]any, len(entry.Metadata)+1)
		for k, v := range entry.Metadata {
			metadata[k] = v
		}
		metadata["requestId"] = rid
		entry.Metadata = metadata
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.appender.Append(ctx, &entry); err != nil {
		fields := logrus.Fields{"action": entry.Action}
		if entry.Entity != nil {
			fields["entity_type"] = entry.Entity.Type
			fields["entity_id"] = entry.Entity.ID
		}
		r.logger.WithError(err).WithFields(fields).Error("failed to record audit entry")
	}
}
