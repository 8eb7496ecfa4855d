package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/ohq-statistics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ohq-statistics/internal/adapters/primary/validation"
	"github.com/lorrc/ohq-statistics/internal/scheduler"
)

// JobRunner starts batch operations on behalf of admins.
type JobRunner interface {
	Operations() []string
	Trigger(operation string, asOf time.Time) error
	History() []scheduler.RunRecord
}

// JobHandler lets admins inspect and start batch operations.
type JobHandler struct {
	jobs         JobRunner
	location     *time.Location
	now          func() time.Time
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewJobHandler(jobs JobRunner, location *time.Location, errorHandler *ErrorHandler, logger *slog.Logger) *JobHandler {
	if location == nil {
		location = time.UTC
	}
	return &JobHandler{
		jobs:         jobs,
		location:     location,
		now:          time.Now,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "jobs"),
	}
}

// RegisterRoutes mounts the job endpoints. Callers must already have run the
// JWT and admin middleware.
func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListJobs)
	r.Post("/{operation}", h.HandleTriggerJob)
}

// JobListResponse lists the runnable operations and recent runs.
type JobListResponse struct {
	Operations []string              `json:"operations"`
	History    []scheduler.RunRecord `json:"history"`
}

// JobAcceptedResponse acknowledges a background run.
type JobAcceptedResponse struct {
	Operation string    `json:"operation"`
	AsOf      time.Time `json:"asOf"`
}

// HandleListJobs handles GET /admin/jobs
func (h *JobHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, JobListResponse{
		Operations: h.jobs.Operations(),
		History:    h.jobs.History(),
	})
}

// HandleTriggerJob handles POST /admin/jobs/{operation}?date=YYYY-MM-DD.
// Without a date the run treats the current time as "now".
func (h *JobHandler) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")

	v := validation.NewValidator()
	v.Required("operation", operation)
	date := v.OptionalDate("date", r.URL.Query().Get("date"))
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	asOf := h.now()
	if date != nil {
		asOf = scheduler.AsOfDate(*date, h.location)
	}

	if err := h.jobs.Trigger(operation, asOf); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	claims, _ := mw.GetClaims(r.Context())
	attrs := []any{"operation", operation, "as_of", asOf.Format(time.RFC3339)}
	if claims != nil {
		attrs = append(attrs, "admin_id", claims.UserID)
	}
	h.logger.InfoContext(r.Context(), "batch operation triggered", attrs...)

	WriteAccepted(w, JobAcceptedResponse{Operation: operation, AsOf: asOf}, "operation started")
}
