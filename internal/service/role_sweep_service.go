package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type tutorPromoter interface {
	PromoteApprovedTutors(ctx context.Context) ([]string, error)
}

// RoleSweepService periodically promotes accounts whose tutor profile was approved
// but whose role was not updated at approval time.
type RoleSweepService struct {
	repo    tutorPromoter
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration
	cron    *cron.Cron
}

// NewRoleSweepService creates a RoleSweepService.
func NewRoleSweepService(repo tutorPromoter, metrics *MetricsService, logger *zap.Logger) *RoleSweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleSweepService{repo: repo, metrics: metrics, logger: logger, timeout: time.Minute}
}

// Run performs one sweep and returns the promoted emails.
func (s *RoleSweepService) Run(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	promoted, err := s.repo.PromoteApprovedTutors(ctx)
	s.metrics.RecordSweep(len(promoted), err)
	if err != nil {
		s.logger.Error("role sweep failed", zap.Error(err))
		return nil, err
	}
	if len(promoted) > 0 {
		s.logger.Info("role sweep promoted tutors", zap.Strings("emails", promoted))
	}
	return promoted, nil
}

// Start schedules the sweep with a standard five-field cron expression.
func (s *RoleSweepService) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.Run(ctx)
	}); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.logger.Info("role sweep scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *RoleSweepService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
