package sheetmusic

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// SheetMusicCreated does nothing and returns nil
func (n *NoopEventSink) SheetMusicCreated(ctx context.Context, sheetMusic *SheetMusic) error {
	return nil
}

// SheetMusicUpdated does nothing and returns nil
func (n *NoopEventSink) SheetMusicUpdated(ctx context.Context, sheetMusic *SheetMusic, result PdfUpdatedResult) error {
	return nil
}

// SheetMusicDeleted does nothing and returns nil
func (n *NoopEventSink) SheetMusicDeleted(ctx context.Context, sheetMusicID int64) error {
	return nil
}

// LogEventSink writes lifecycle events to a structured logger
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink logging at info level
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (l *LogEventSink) SheetMusicCreated(ctx context.Context, sheetMusic *SheetMusic) error {
	l.log(ctx, NewCreatedEvent(sheetMusic))
	return nil
}

func (l *LogEventSink) SheetMusicUpdated(ctx context.Context, sheetMusic *SheetMusic, result PdfUpdatedResult) error {
	l.log(ctx, NewUpdatedEvent(sheetMusic, result))
	return nil
}

func (l *LogEventSink) SheetMusicDeleted(ctx context.Context, sheetMusicID int64) error {
	l.log(ctx, NewDeletedEvent(sheetMusicID))
	return nil
}

func (l *LogEventSink) log(ctx context.Context, event Event) {
	l.logger.InfoContext(ctx, event.Type,
		"sheet_music_id", event.SheetMusicID,
		"added_pdfs", len(event.AddedPdfs),
		"deleted_pdfs", len(event.DeletedPdfs))
}

// NoopTransactor runs functions without a transaction. It is used when the
// repository does not provide one.
type NoopTransactor struct{}

// WithinTransaction calls fn with ctx
func (NoopTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
