package http

import (
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/ohq-statistics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ohq-statistics/internal/auth"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/mocks"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStatisticsRouter(svc ports.StatisticsQueryService) *chi.Mux {
	logger := discardLogger()
	handler := NewStatisticsHandler(svc, NewErrorHandler(logger), logger)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func serve(router stdhttp.Handler, req *stdhttp.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func withClaims(req *stdhttp.Request, userID uuid.UUID, admin bool) *stdhttp.Request {
	claims := &auth.Claims{UserID: userID, Admin: admin}
	return req.WithContext(mw.WithClaims(req.Context(), claims))
}

func TestQueueStatistics(t *testing.T) {
	svc := mocks.NewMockStatisticsQueryService()
	router := newStatisticsRouter(svc)

	date := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	metric := domain.MetricAvgWait
	svc.On("QueueStatistics", mock.Anything, ports.QueueStatisticsParams{QueueID: 7, Metric: &metric, DateFrom: &from}).
		Return([]domain.QueueStatistic{{QueueID: 7, Metric: metric, Date: &date, Value: 300}}, nil)

	recorder := serve(router, httptest.NewRequest(stdhttp.MethodGet, "/queues/7/statistics?metric=AVG_WAIT&from=2024-03-01", nil))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response ListResponse[QueueStatisticDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, QueueStatisticDTO{Metric: "AVG_WAIT", Date: "2024-03-03", Value: 300}, response.Data[0])
	svc.AssertExpectations(t)
}

func TestQueueStatistics_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"bad queue id", "/queues/abc/statistics", nil, stdhttp.StatusUnprocessableEntity},
		{"bad date", "/queues/7/statistics?from=03/01/2024", nil, stdhttp.StatusUnprocessableEntity},
		{"unknown metric", "/queues/7/statistics?metric=NOPE", apperrors.ErrUnknownMetric, stdhttp.StatusBadRequest},
		{"missing queue", "/queues/7/statistics", apperrors.ErrQueueNotFound, stdhttp.StatusNotFound},
		{"inverted range", "/queues/7/statistics?from=2024-03-02&to=2024-03-01", apperrors.ErrInvalidDateRange, stdhttp.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockStatisticsQueryService()
			if tt.err != nil {
				svc.On("QueueStatistics", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			recorder := serve(newStatisticsRouter(svc), httptest.NewRequest(stdhttp.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, recorder.Code)
			if tt.err == nil {
				svc.AssertNotCalled(t, "QueueStatistics", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestQueueHeatmap(t *testing.T) {
	svc := mocks.NewMockStatisticsQueryService()
	router := newStatisticsRouter(svc)

	heatmap := &ports.Heatmap{QueueID: 7, Metric: domain.MetricHeatmapWait}
	heatmap.Values[2][14] = 480
	svc.On("QueueHeatmap", mock.Anything, int64(7), domain.MetricHeatmapWait).Return(heatmap, nil)

	recorder := serve(router, httptest.NewRequest(stdhttp.MethodGet, "/queues/7/heatmap", nil))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response struct {
		Data HeatmapDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "HEATMAP_WAIT", response.Data.Metric)
	assert.Equal(t, 480.0, response.Data.Values[2][14])
}

func TestMemberStatistics(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	t.Run("own statistics", func(t *testing.T) {
		svc := mocks.NewMockStatisticsQueryService()
		svc.On("MemberStatistics", mock.Anything, int64(3), self).
			Return([]domain.MembershipStatistic{{UserID: self, CourseID: 3, Metric: domain.MetricStudentQuestionsAsked, Value: 4}}, nil)

		req := withClaims(httptest.NewRequest(stdhttp.MethodGet, "/courses/3/members/"+self.String()+"/statistics", nil), self, false)
		recorder := serve(newStatisticsRouter(svc), req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		var response ListResponse[MemberStatisticDTO]
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, []MemberStatisticDTO{{Metric: string(domain.MetricStudentQuestionsAsked), Value: 4}}, response.Data)
	})

	t.Run("someone else's statistics", func(t *testing.T) {
		svc := mocks.NewMockStatisticsQueryService()

		req := withClaims(httptest.NewRequest(stdhttp.MethodGet, "/courses/3/members/"+other.String()+"/statistics", nil), self, false)
		recorder := serve(newStatisticsRouter(svc), req)

		assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
		svc.AssertNotCalled(t, "MemberStatistics", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin reads anyone", func(t *testing.T) {
		svc := mocks.NewMockStatisticsQueryService()
		svc.On("MemberStatistics", mock.Anything, int64(3), other).Return([]domain.MembershipStatistic{}, nil)

		req := withClaims(httptest.NewRequest(stdhttp.MethodGet, "/courses/3/members/"+other.String()+"/statistics", nil), self, true)
		recorder := serve(newStatisticsRouter(svc), req)

		assert.Equal(t, stdhttp.StatusOK, recorder.Code)
	})

	t.Run("no claims", func(t *testing.T) {
		svc := mocks.NewMockStatisticsQueryService()

		recorder := serve(newStatisticsRouter(svc), httptest.NewRequest(stdhttp.MethodGet, "/courses/3/members/"+self.String()+"/statistics", nil))

		assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})
}

func TestLeaderboard(t *testing.T) {
	svc := mocks.NewMockStatisticsQueryService()
	router := newStatisticsRouter(svc)

	first, second := uuid.New(), uuid.New()
	svc.On("Leaderboard", mock.Anything, int64(3), domain.MetricInstrQuestionsAnswered, 2).
		Return([]domain.LeaderboardEntry{
			{UserID: first, FullName: "Ada", Value: 30},
			{UserID: second, FullName: "Brook", Value: 12},
		}, nil)

	recorder := serve(router, httptest.NewRequest(stdhttp.MethodGet, "/courses/3/leaderboard?metric="+string(domain.MetricInstrQuestionsAnswered)+"&limit=2", nil))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response ListResponse[LeaderboardEntryDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Data, 2)
	assert.Equal(t, 1, response.Data[0].Rank)
	assert.Equal(t, first, response.Data[0].UserID)
	assert.Equal(t, 2, response.Data[1].Rank)
}

func TestLeaderboard_RequiresMetric(t *testing.T) {
	svc := mocks.NewMockStatisticsQueryService()

	recorder := serve(newStatisticsRouter(svc), httptest.NewRequest(stdhttp.MethodGet, "/courses/3/leaderboard", nil))

	assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}

