package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"organlink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	entries []*types.AuditEntry
	err     error
	ctxErr  error
}

func (f *fakeAppender) Append(ctx context.Context, entry *types.AuditEntry) error {
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestRecordAppendsEntry(t *testing.T) {
	logger, hook := test.NewNullLogger()
	appender := &fakeAppender{}
	recorder := NewRecorder(appender, logger)

	recorder.Record(WithRequestID(context.Background(), "req-1"), types.AuditEntry{
		Action:   "user.logged_in",
		Metadata: map[string]any{"email": "a@b.c"},
	})

	require.Len(t, appender.entries, 1)
	entry := appender.entries[0]
	assert.Equal(t, "user.logged_in", entry.Action)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, "req-1", entry.Metadata["requestId"])
	assert.Equal(t, "a@b.c", entry.Metadata["email"])
	assert.Empty(t, hook.AllEntries())
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	appender := &fakeAppender{}
	recorder := NewRecorder(appender, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder.Record(ctx, types.AuditEntry{Action: "admin.donor_application_approved"})

	require.Len(t, appender.entries, 1)
	assert.NoError(t, appender.ctxErr)
}

func TestRecordLogsAndSwallowsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	appender := &fakeAppender{err: errors.New("connection refused")}
	recorder := NewRecorder(appender, logger)

	recorder.Record(context.Background(), types.AuditEntry{
		Action: "admin.recipient_application_rejected",
		Entity: &types.AuditEntity{Type: "recipientApplication", ID: "app-9"},
	})

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "failed to record audit entry", last.Message)
	assert.Equal(t, "app-9", last.Data["entity_id"])
}

func TestRecordDropsBlankAction(t *testing.T) {
	logger, hook := test.NewNullLogger()
	appender := &fakeAppender{}
	recorder := NewRecorder(appender, logger)

	recorder.Record(context.Background(), types.AuditEntry{Action: "  "})

	assert.Empty(t, appender.entries)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	logger, _ := test.NewNullLogger()
	appender := &fakeAppender{}
	recorder := NewRecorder(appender, logger)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	recorder.Record(context.Background(), types.AuditEntry{Action: "x", CreatedAt: at})

	require.Len(t, appender.entries, 1)
	assert.Equal(t, at, appender.entries[0].CreatedAt)
}
