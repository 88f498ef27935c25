package roster

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rostercore/internal/blob"
	"rostercore/internal/core"
	"rostercore/internal/export"
	"rostercore/internal/query"
)

// ExportFormat names a renderable artifact format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored roster artifact.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Query       query.Query      `json:"query"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Query       query.Query
	Formats     []ExportFormat
	RequestedBy string
	Reason      string
}

// ExportScheduler queues export requests and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string       `json:"id"`
	Action     string       `json:"action"`
	Actor      string       `json:"actor"`
	JobID      string       `json:"job_id"`
	Status     ExportStatus `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Note       string       `json:"note,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ExportWorker renders roster exports asynchronously and stores the
// resulting artifacts as immutable blobs keyed by job id.
type ExportWorker struct {
	service *core.Service
	store   blob.Store
	audit   AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewExportWorker constructs an export worker. The audit logger may be nil.
func NewExportWorker(service *core.Service, store blob.Store, audit AuditLogger) *ExportWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExportWorker{
		service: service,
		store:   store,
		audit:   audit,
		queue:   make(chan exportTask, 32),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing export requests.
func (w *ExportWorker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ExportWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *ExportWorker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.service == nil {
		return ExportRecord{}, fmt.Errorf("export service not configured")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatCSV, FormatJSON}
	}
	uniq := make([]ExportFormat, 0, len(formats))
	seen := make(map[ExportFormat]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		switch format {
		case FormatCSV, FormatJSON:
		default:
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := newJobID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Query:       input.Query,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.record(ctx, AuditEntry{
		ID:         newJobID(),
		Action:     "roster_export",
		Actor:      input.RequestedBy,
		JobID:      id,
		Status:     ExportStatusQueued,
		Reason:     input.Reason,
		OccurredAt: now,
	})

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		w.record(ctx, AuditEntry{
			ID:         newJobID(),
			Action:     "roster_export",
			Actor:      input.RequestedBy,
			JobID:      id,
			Status:     ExportStatusFailed,
			Note:       "export queue full",
			OccurredAt: time.Now().UTC(),
		})
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *ExportWorker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.RUnlock()
		return ExportRecord{}, false
	}
	snapshot := record.copy()
	w.mu.RUnlock()
	return snapshot, true
}

func (w *ExportWorker) process(task exportTask) {
	w.mu.RLock()
	record, ok := w.jobs[task.id]
	w.mu.RUnlock()
	if !ok {
		return
	}

	w.updateStatus(task.id, ExportStatusRunning, "")

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		artifact, payload, err := w.materialize(task.id, format, task.input.Query)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		if w.store != nil {
			info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blob.PutOptions{
				ContentType: artifact.ContentType,
				Metadata:    map[string]string{"job_id": task.id, "format": string(format)},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.SizeBytes = info.Size
			artifact.URL = info.URL
			if url, err := w.store.PresignURL(w.ctx, artifact.Key, blob.SignedURLOptions{Method: "GET"}); err == nil {
				artifact.URL = url
			} else if !errors.Is(err, blob.ErrUnsupported) {
				w.fail(task.id, fmt.Sprintf("presign artifact failed: %v", err))
				return
			}
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
}

func (w *ExportWorker) materialize(jobID string, format ExportFormat, q query.Query) (ExportArtifact, []byte, error) {
	view := w.service.DeriveView(w.ctx, q)
	now := time.Now().UTC()
	switch format {
	case FormatCSV:
		payload, err := export.CSV(view)
		if err != nil {
			return ExportArtifact{}, nil, fmt.Errorf("render csv: %w", err)
		}
		return ExportArtifact{
			Key:         jobID + "/employees.csv",
			Format:      FormatCSV,
			ContentType: export.ContentType,
			SizeBytes:   int64(len(payload)),
			CreatedAt:   now,
		}, payload, nil
	case FormatJSON:
		payload, err := json.Marshal(view)
		if err != nil {
			return ExportArtifact{}, nil, fmt.Errorf("render json: %w", err)
		}
		return ExportArtifact{
			Key:         jobID + "/employees.json",
			Format:      FormatJSON,
			ContentType: "application/json",
			SizeBytes:   int64(len(payload)),
			CreatedAt:   now,
		}, payload, nil
	default:
		return ExportArtifact{}, nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *ExportWorker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.record(w.ctx, AuditEntry{
		ID:         newJobID(),
		Action:     "roster_export",
		Actor:      w.actorFor(id),
		JobID:      id,
		Status:     status,
		Note:       message,
		OccurredAt: now,
	})
}

func (w *ExportWorker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, AuditEntry{
		ID:         newJobID(),
		Action:     "roster_export",
		Actor:      w.actorFor(id),
		JobID:      id,
		Status:     ExportStatusSucceeded,
		OccurredAt: now,
	})
}

func (w *ExportWorker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, AuditEntry{
		ID:         newJobID(),
		Action:     "roster_export",
		Actor:      w.actorFor(id),
		JobID:      id,
		Status:     ExportStatusFailed,
		Note:       reason,
		OccurredAt: now,
	})
}

func (w *ExportWorker) record(ctx context.Context, entry AuditEntry) {
	if w.audit != nil {
		w.audit.Record(ctx, entry)
	}
}

func (w *ExportWorker) actorFor(id string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if record, ok := w.jobs[id]; ok {
		return record.RequestedBy
	}
	return ""
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}

func newJobID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(ctx context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
