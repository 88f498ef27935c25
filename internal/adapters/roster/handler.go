// Package roster exposes the employee roster service over HTTP and runs
// asynchronous export jobs against the blob store.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rostercore/docs/openapi"
	"rostercore/internal/core"
	"rostercore/internal/export"
	"rostercore/internal/query"
	"rostercore/pkg/domain"
)

// Suggester turns a free-form intent into a search string. The output is
// treated as opaque and fed to the view derivation unchanged.
type Suggester interface {
	Suggest(ctx context.Context, intent string) (string, error)
}

// EchoSuggester returns the intent verbatim. It is the default when no
// external suggester is configured.
type EchoSuggester struct{}

func (EchoSuggester) Suggest(_ context.Context, intent string) (string, error) {
	return intent, nil
}

// Handler exposes roster operations over HTTP.
type Handler struct {
	service *core.Service
	exports ExportScheduler
	suggest Suggester
}

// HandlerOption configures optional handler collaborators.
type HandlerOption func(*Handler)

// WithExportScheduler wires the async export endpoints. Without it the
// /api/v1/exports routes respond 503.
func WithExportScheduler(scheduler ExportScheduler) HandlerOption {
	return func(h *Handler) {
		if scheduler != nil {
			h.exports = scheduler
		}
	}
}

// WithSuggester overrides the query suggester.
func WithSuggester(s Suggester) HandlerOption {
	return func(h *Handler) {
		if s != nil {
			h.suggest = s
		}
	}
}

// NewHandler constructs an HTTP handler over the roster service.
func NewHandler(service *core.Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, suggest: EchoSuggester{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/employees":
		h.handleEmployees(w, r)
	case path == "/api/v1/employees/export":
		h.handleExportCSV(w, r)
	case path == "/api/v1/employees/stats":
		h.handleStats(w, r)
	case strings.HasPrefix(path, "/api/v1/employees/"):
		h.handleEmployeeByID(w, r, strings.TrimPrefix(path, "/api/v1/employees/"))
	case path == "/api/v1/exports":
		h.handleExports(w, r)
	case strings.HasPrefix(path, "/api/v1/exports/"):
		h.handleExportByID(w, r, strings.TrimPrefix(path, "/api/v1/exports/"))
	case path == "/api/v1/query/suggest":
		h.handleSuggest(w, r)
	case path == "/api/v1/openapi.yaml":
		h.handleOpenAPI(w, r)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (h *Handler) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view := h.service.DeriveView(r.Context(), parseQuery(r))
		writeJSON(w, http.StatusOK, map[string]any{"employees": view})
	case http.MethodPost:
		var employee domain.Employee
		if err := json.NewDecoder(r.Body).Decode(&employee); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("decode employee: %v", err))
			return
		}
		created, res, err := h.service.CreateEmployee(r.Context(), employee)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"employee": created, "violations": res.Violations})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleEmployeeByID(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusNotFound, "employee id required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		employee, ok := h.service.GetEmployee(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("employee %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employee": employee})
	case http.MethodPut:
		var incoming domain.Employee
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("decode employee: %v", err))
			return
		}
		updated, res, err := h.service.UpdateEmployee(r.Context(), id, func(e *domain.Employee) error {
			base := e.Base
			*e = incoming
			e.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employee": updated, "violations": res.Violations})
	case http.MethodDelete:
		res, err := h.service.DeleteEmployee(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "violations": res.Violations})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	data, err := h.service.ExportCSV(r.Context(), parseQuery(r))
	if err != nil {
		if errors.Is(err, export.ErrEmptyInput) {
			writeError(w, http.StatusConflict, "no employee records match the requested export")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": h.service.Stats(r.Context())})
}

type exportRequest struct {
	Search      string         `json:"search"`
	Department  string         `json:"department"`
	Position    string         `json:"position"`
	Sort        string         `json:"sort"`
	Order       string         `json:"order"`
	Formats     []ExportFormat `json:"formats"`
	RequestedBy string         `json:"requested_by"`
	Reason      string         `json:"reason"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "export scheduler not configured")
		return
	}
	var req exportRequest
	// An empty body means "export everything with the defaults".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode export request: %v", err))
		return
	}
	record, err := h.exports.EnqueueExport(r.Context(), ExportInput{
		Query:       buildQuery(req.Search, req.Department, req.Position, req.Sort, req.Order),
		Formats:     req.Formats,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "export scheduler not configured")
		return
	}
	record, ok := h.exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("export %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Intent string `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode suggest request: %v", err))
		return
	}
	if strings.TrimSpace(req.Intent) == "" {
		writeError(w, http.StatusBadRequest, "intent required")
		return
	}
	search, err := h.suggest.Suggest(r.Context(), req.Intent)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("suggest: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"search": search})
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec())
}

// parseQuery maps the view parameters from the URL onto a query, falling
// back to the session defaults for anything absent.
func parseQuery(r *http.Request) query.Query {
	params := r.URL.Query()
	return buildQuery(
		params.Get("search"),
		params.Get("department"),
		params.Get("position"),
		params.Get("sort"),
		params.Get("order"),
	)
}

func buildQuery(search, department, position, sort, order string) query.Query {
	q := query.Default()
	q.Search = search
	if department != "" {
		q.Department = department
	}
	if position != "" {
		q.Position = position
	}
	if sort != "" {
		q.SortKey = query.SortKey(sort)
	}
	switch order {
	case "descending", "desc":
		q.SortOrder = query.SortDescending
	case "ascending", "asc", "":
	default:
	}
	return q
}

func writeServiceError(w http.ResponseWriter, err error) {
	var notFound domain.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	var blocked domain.RuleViolationError
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      blocked.Error(),
			"violations": blocked.Result.Violations,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
