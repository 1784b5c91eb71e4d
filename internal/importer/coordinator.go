// Package importer drives the attendance, table and dual-file payroll imports and
// records each run as an import session.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"luongimport/internal/config"
	"luongimport/internal/logger"
	"luongimport/internal/model"
	"luongimport/internal/parser"
	"luongimport/internal/store"
)

var (
	// ErrNoSource payroll import called without any file
	ErrNoSource = errors.New("at least one payroll file is required")
	// ErrTimeout the import did not finish before the deadline
	ErrTimeout = errors.New("import timed out")
	// ErrInvalidWorkbook the upload is not a readable xlsx workbook or lacks the requested sheet
	ErrInvalidWorkbook = errors.New("invalid workbook")
)

// Progress event types
const (
	EventStart = "start"
	EventSheet = "sheet"
	EventDone  = "done"
	EventError = "error"
)

// ProgressEvent progress notification of one run
type ProgressEvent struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestContext caller identity attached to logs and sessions
type RequestContext struct {
	RequestID string
	Actor     string
}

// Upload one named input file
type Upload struct {
	Name   string
	Reader io.Reader
}

// AttendanceOptions options of ImportAttendance
type AttendanceOptions struct {
	// SheetName attendance sheet; empty picks the best-scoring attendance sheet
	SheetName  string
	Request    RequestContext
	OnProgress func(ProgressEvent)
}

// TableOptions options of ImportTable
type TableOptions struct {
	SheetName string
	// KeyFields builds merge keys and detects duplicates when set
	KeyFields  []string
	Request    RequestContext
	OnProgress func(ProgressEvent)
}

// PayrollOptions options of ImportPayroll
type PayrollOptions struct {
	Sheet1     string
	Sheet2     string
	Request    RequestContext
	OnProgress func(ProgressEvent)
}

// Coordinator import coordinator. Safe for concurrent use; every run owns its own state.
type Coordinator struct {
	store  *store.Store
	logger *slog.Logger
	cfg    config.ImportConfig
}

// NewCoordinator creates a coordinator. store may be nil, in which case no sessions are recorded.
func NewCoordinator(st *store.Store, l *slog.Logger, cfg config.ImportConfig) *Coordinator {
	if l == nil {
		l = logger.Discard()
	}
	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = parser.DefaultHeaderScanRows
	}
	return &Coordinator{store: st, logger: l, cfg: cfg}
}

// outcome what a run reports back for session bookkeeping
type outcome struct {
	total    int
	errors   int
	warnings int
}

// run executes work under the configured deadline. work itself has no checkpoints: on
// timeout the goroutine is abandoned and its result discarded.
func run[T any](ctx context.Context, c *Coordinator, kind model.ImportKind, filenames string, req RequestContext,
	onProgress func(ProgressEvent), work func(sessionID string, emit func(ProgressEvent)) (T, outcome, error)) (T, error) {

	var zero T
	sessionID := uuid.New().String()
	started := time.Now()
	log := c.logger.With("session_id", sessionID, "kind", string(kind), "files", filenames)
	if req.RequestID != "" {
		log = logger.WithRequestID(log, req.RequestID)
	}
	if req.Actor != "" {
		log = log.With("actor", req.Actor)
	}

	// emits from an abandoned worker are dropped once the run has returned
	var mu sync.Mutex
	closed := false
	emit := func(ev ProgressEvent) {
		if onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		ev.SessionID = sessionID
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		onProgress(ev)
	}

	if c.store != nil {
		if err := c.store.CreateImportSession(model.ImportSession{
			ID:        sessionID,
			Kind:      kind,
			Filenames: filenames,
			Actor:     req.Actor,
			StartedAt: started,
		}); err != nil {
			log.Warn("failed to record import session", "error", err)
		}
	}

	if timeout := c.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	emit(ProgressEvent{Type: EventStart, Message: "import started", Data: map[string]string{"files": filenames}})

	type result struct {
		value T
		out   outcome
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, out, err := work(sessionID, emit)
		done <- result{value: v, out: out, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w after %s", ErrTimeout, time.Since(started).Round(time.Millisecond))
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = fmt.Errorf("import canceled: %w", ctx.Err())
		}
	}

	mu.Lock()
	closed = true
	mu.Unlock()
	finalEmit := func(ev ProgressEvent) {
		if onProgress == nil {
			return
		}
		ev.SessionID = sessionID
		ev.Timestamp = time.Now()
		onProgress(ev)
	}

	status := model.SessionSucceeded
	errMsg := ""
	switch {
	case res.err != nil:
		status = model.SessionFailed
		errMsg = res.err.Error()
	case res.out.errors > 0:
		status = model.SessionPartial
	}
	if c.store != nil {
		if err := c.store.FinishImportSession(sessionID, status, res.out.total, res.out.errors, res.out.warnings, errMsg); err != nil {
			log.Warn("failed to finish import session", "error", err)
		}
	}

	elapsed := time.Since(started)
	if res.err != nil {
		finalEmit(ProgressEvent{Type: EventError, Message: res.err.Error()})
		logger.WithError(log, res.err).Error("import failed", "duration_ms", elapsed.Milliseconds())
		return zero, res.err
	}

	finalEmit(ProgressEvent{Type: EventDone, Message: "import finished", Data: map[string]int{
		"records":  res.out.total,
		"errors":   res.out.errors,
		"warnings": res.out.warnings,
	}})
	log.Info("import finished",
		"status", status,
		"records", res.out.total,
		"errors", res.out.errors,
		"warnings", res.out.warnings,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res.value, nil
}

// openWorkbookSheet opens the upload and loads sheetName, or the best sheet of the wanted type
func (c *Coordinator) openWorkbookSheet(r io.Reader, sheetName string, want model.SheetType, labels []string) (*parser.Sheet, error) {
	f, err := parser.OpenWorkbook(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	if sheetName == "" {
		results, err := parser.NewSheetRecognizer(c.cfg.HeaderScanRows, labels).RecognizeWorkbook(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
		}
		if name, ok := parser.PickSheet(results, want); ok {
			sheetName = name
		} else if sheets := f.GetSheetList(); len(sheets) > 0 {
			sheetName = sheets[0]
		} else {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrInvalidWorkbook, sheetName)
	}

	sheet, err := parser.LoadSheet(f, sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return sheet, nil
}

// warnOverlaps reports merged regions dropped because they overlapped an earlier one
func warnOverlaps(sheet *parser.Sheet, agg *model.Aggregator) {
	for _, name := range sheet.Overlaps {
		agg.Warn(0, "", model.CategoryStructural, "", "merged region %s overlaps another region and was ignored", name)
	}
}

func mappingLabels(mappings []model.ColumnMapping) []string {
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, m.ExcelColumnName)
	}
	return out
}
