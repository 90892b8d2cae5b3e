package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/pkg/config"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

const summaryCacheKey = "dashboard:summary"

type dashboardApplicationRepository interface {
	CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error)
}

type dashboardPaymentRepository interface {
	CountPendingManual(ctx context.Context) (int, error)
}

type dashboardEnrollmentRepository interface {
	CountByStatus(ctx context.Context, status models.EnrollmentStatus) (int, error)
	SumOutstandingBalance(ctx context.Context) (int64, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DashboardSummary aggregates the admin landing page counters.
type DashboardSummary struct {
	PendingApplications     int       `json:"pending_applications"`
	PendingVerifications    int       `json:"pending_verifications"`
	ActiveEnrollments       int       `json:"active_enrollments"`
	OutstandingBalanceCents int64     `json:"outstanding_balance_cents"`
	GeneratedAt             time.Time `json:"generated_at"`
}

// DashboardService serves cached aggregate counters. This is the only
// read path allowed to serve stale data; ledger and progress reads are
// always live.
type DashboardService struct {
	applications dashboardApplicationRepository
	payments     dashboardPaymentRepository
	enrollments  dashboardEnrollmentRepository
	cache        summaryCache
	cfg          config.DashboardConfig
	logger       *zap.Logger
}

// NewDashboardService constructs the dashboard service. cache may be
// nil, in which case every read recomputes.
func NewDashboardService(
	applications dashboardApplicationRepository,
	payments dashboardPaymentRepository,
	enrollments dashboardEnrollmentRepository,
	cache summaryCache,
	cfg config.DashboardConfig,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		applications: applications,
		payments:     payments,
		enrollments:  enrollments,
		cache:        cache,
		cfg:          cfg,
		logger:       logger,
	}
}

// Summary returns the dashboard counters, served from cache within the
// configured TTL.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil && s.cfg.Enabled {
		var cached DashboardSummary
		if err := s.cache.Get(ctx, summaryCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cfg.Enabled {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary after a ledger or lifecycle
// mutation.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil || !s.cfg.Enabled {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardSummary, error) {
	pendingApps, err := s.applications.CountByStatus(ctx, models.ApplicationStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}
	pendingPayments, err := s.payments.CountPendingManual(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending payments")
	}
	activeEnrollments, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusActive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	outstanding, err := s.enrollments.SumOutstandingBalance(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum outstanding balance")
	}

	return &DashboardSummary{
		PendingApplications:     pendingApps,
		PendingVerifications:    pendingPayments,
		ActiveEnrollments:       activeEnrollments,
		OutstandingBalanceCents: outstanding,
		GeneratedAt:             time.Now().UTC(),
	}, nil
}
