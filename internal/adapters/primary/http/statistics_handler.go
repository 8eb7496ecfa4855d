package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/ohq-statistics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ohq-statistics/internal/adapters/primary/validation"
	"github.com/lorrc/ohq-statistics/internal/auth"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

// StatisticsHandler serves stored queue and membership statistics.
type StatisticsHandler struct {
	queryService ports.StatisticsQueryService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewStatisticsHandler(queryService ports.StatisticsQueryService, errorHandler *ErrorHandler, logger *slog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		queryService: queryService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "statistics"),
	}
}

// RegisterRoutes mounts the read endpoints. Callers must already have run
// the JWT middleware.
func (h *StatisticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/queues/{queueID}/statistics", h.HandleQueueStatistics)
	r.Get("/queues/{queueID}/heatmap", h.HandleQueueHeatmap)
	r.Get("/courses/{courseID}/members/{userID}/statistics", h.HandleMemberStatistics)
	r.Get("/courses/{courseID}/leaderboard", h.HandleLeaderboard)
}

// QueueStatisticDTO is a dated queue statistic.
type QueueStatisticDTO struct {
	Metric string  `json:"metric"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
}

// HeatmapDTO is a 7x24 grid indexed [day][hour], Monday first.
type HeatmapDTO struct {
	QueueID int64                                          `json:"queueId"`
	Metric  string                                         `json:"metric"`
	Values  [domain.DaysPerWeek][domain.HoursPerDay]float64 `json:"values"`
}

// MemberStatisticDTO is one of a member's course statistics.
type MemberStatisticDTO struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// LeaderboardEntryDTO is one ranked member.
type LeaderboardEntryDTO struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"userId"`
	FullName string    `json:"fullName"`
	Value    float64   `json:"value"`
}

// HandleQueueStatistics handles GET /queues/{queueID}/statistics
func (h *StatisticsHandler) HandleQueueStatistics(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	queueID := v.ID("queueID", chi.URLParam(r, "queueID"))
	from := v.OptionalDate("from", r.URL.Query().Get("from"))
	to := v.OptionalDate("to", r.URL.Query().Get("to"))
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.QueueStatisticsParams{QueueID: queueID, DateFrom: from, DateTo: to}
	if raw := validation.ParseStringQueryParam(r, "metric"); raw != nil {
		metric := domain.QueueMetric(*raw)
		params.Metric = &metric
	}

	stats, err := h.queryService.QueueStatistics(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]QueueStatisticDTO, 0, len(stats))
	for _, stat := range stats {
		if stat.Date == nil {
			continue
		}
		response = append(response, QueueStatisticDTO{
			Metric: string(stat.Metric),
			Date:   stat.Date.Format(validation.DateLayout),
			Value:  stat.Value,
		})
	}

	WriteList(w, response)
}

// HandleQueueHeatmap handles GET /queues/{queueID}/heatmap
func (h *StatisticsHandler) HandleQueueHeatmap(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	queueID := v.ID("queueID", chi.URLParam(r, "queueID"))
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = string(domain.MetricHeatmapWait)
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	heatmap, err := h.queryService.QueueHeatmap(r.Context(), queueID, domain.QueueMetric(metric))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, HeatmapDTO{
		QueueID: heatmap.QueueID,
		Metric:  string(heatmap.Metric),
		Values:  heatmap.Values,
	})
}

// HandleMemberStatistics handles GET /courses/{courseID}/members/{userID}/statistics.
// Members may read their own statistics; admins may read anyone's.
func (h *StatisticsHandler) HandleMemberStatistics(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	courseID := v.ID("courseID", chi.URLParam(r, "courseID"))
	userID := v.UUID("userID", chi.URLParam(r, "userID"))
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if userID != claims.UserID && !claims.Admin {
		h.errorHandler.Handle(w, r, apperrors.NewForbiddenError("You may only view your own statistics"))
		return
	}

	stats, err := h.queryService.MemberStatistics(r.Context(), courseID, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]MemberStatisticDTO, 0, len(stats))
	for _, stat := range stats {
		response = append(response, MemberStatisticDTO{Metric: string(stat.Metric), Value: stat.Value})
	}

	WriteList(w, response)
}

// HandleLeaderboard handles GET /courses/{courseID}/leaderboard
func (h *StatisticsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	courseID := v.ID("courseID", chi.URLParam(r, "courseID"))
	limit := v.OptionalInt("limit", r.URL.Query().Get("limit"), 0)
	metric := r.URL.Query().Get("metric")
	v.Required("metric", metric)
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	entries, err := h.queryService.Leaderboard(r.Context(), courseID, domain.MembershipMetric(metric), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]LeaderboardEntryDTO, 0, len(entries))
	for i, entry := range entries {
		response = append(response, LeaderboardEntryDTO{
			Rank:     i + 1,
			UserID:   entry.UserID,
			FullName: entry.FullName,
			Value:    entry.Value,
		})
	}

	WriteList(w, response)
}

func (h *StatisticsHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
