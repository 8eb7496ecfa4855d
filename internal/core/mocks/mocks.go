package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockQuestionRepository is a mock implementation of ports.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func NewMockQuestionRepository() *MockQuestionRepository {
	return &MockQuestionRepository{}
}

func (m *MockQuestionRepository) Find(ctx context.Context, filter ports.QuestionFilter) ([]domain.Question, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Question), args.Error(1)
}

// MockCourseRepository is a mock implementation of ports.CourseRepository
type MockCourseRepository struct {
	mock.Mock
}

func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{}
}

func (m *MockCourseRepository) ListActiveCourses(ctx context.Context) ([]*domain.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Course), args.Error(1)
}

func (m *MockCourseRepository) GetCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *MockCourseRepository) ListQueues(ctx context.Context, courseID int64) ([]*domain.Queue, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Queue), args.Error(1)
}

func (m *MockCourseRepository) ListActiveQueues(ctx context.Context) ([]*domain.Queue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Queue), args.Error(1)
}

func (m *MockCourseRepository) GetQueue(ctx context.Context, queueID int64) (*domain.Queue, error) {
	args := m.Called(ctx, queueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Queue), args.Error(1)
}

func (m *MockCourseRepository) ListMemberships(ctx context.Context, courseID int64) ([]*domain.Membership, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func (m *MockCourseRepository) UpdateEstimatedWaitTime(ctx context.Context, queueID int64, minutes int) error {
	args := m.Called(ctx, queueID, minutes)
	return args.Error(0)
}

// MockStatisticsRepository is a mock implementation of ports.StatisticsRepository
type MockStatisticsRepository struct {
	mock.Mock
}

func NewMockStatisticsRepository() *MockStatisticsRepository {
	return &MockStatisticsRepository{}
}

func (m *MockStatisticsRepository) UpsertQueueStatistics(ctx context.Context, stats []domain.QueueStatistic) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatisticsRepository) UpsertMembershipStatistics(ctx context.Context, stats []domain.MembershipStatistic) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatisticsRepository) ListQueueStatistics(ctx context.Context, filter ports.QueueStatisticsFilter) ([]domain.QueueStatistic, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueStatistic), args.Error(1)
}

func (m *MockStatisticsRepository) ListMembershipStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error) {
	args := m.Called(ctx, courseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MembershipStatistic), args.Error(1)
}

func (m *MockStatisticsRepository) Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, courseID, metric, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

// MockStatisticsService is a mock implementation of ports.StatisticsService
type MockStatisticsService struct {
	mock.Mock
}

func NewMockStatisticsService() *MockStatisticsService {
	return &MockStatisticsService{}
}

func (m *MockStatisticsService) Run(ctx context.Context, operation string, now time.Time) (*domain.RunReport, error) {
	args := m.Called(ctx, operation, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunReport), args.Error(1)
}

func (m *MockStatisticsService) Operations() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

// MockStatisticsQueryService is a mock implementation of ports.StatisticsQueryService
type MockStatisticsQueryService struct {
	mock.Mock
}

func NewMockStatisticsQueryService() *MockStatisticsQueryService {
	return &MockStatisticsQueryService{}
}

func (m *MockStatisticsQueryService) QueueStatistics(ctx context.Context, params ports.QueueStatisticsParams) ([]domain.QueueStatistic, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueStatistic), args.Error(1)
}

func (m *MockStatisticsQueryService) QueueHeatmap(ctx context.Context, queueID int64, metric domain.QueueMetric) (*ports.Heatmap, error) {
	args := m.Called(ctx, queueID, metric)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Heatmap), args.Error(1)
}

func (m *MockStatisticsQueryService) MemberStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error) {
	args := m.Called(ctx, courseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MembershipStatistic), args.Error(1)
}

func (m *MockStatisticsQueryService) Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, courseID, metric, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionManager runs the callback inline without a real transaction
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
