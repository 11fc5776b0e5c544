package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/models"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
	"github.com/shivamdarekar/TrendsWave/storage"
)

// DefaultCleanupSchedule runs the cleanup every day at 03:00.
const DefaultCleanupSchedule = "0 3 * * *"

const cleanupRunTimeout = 10 * time.Minute

// CleanupScheduler deletes uploaded images that no product picked up within
// models.TempUploadTTL.
type CleanupScheduler struct {
	repo     repository.TempUploadRepository
	storage  storage.Storage
	metrics  awspkg.MetricsRecorder
	logger   *zap.Logger
	schedule string
	maxAge   time.Duration
	now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewCleanupScheduler(repo repository.TempUploadRepository, store storage.Storage, metrics awspkg.MetricsRecorder, logger *zap.Logger, schedule string) *CleanupScheduler {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &CleanupScheduler{
		repo:     repo,
		storage:  store,
		metrics:  metrics,
		logger:   logger,
		schedule: schedule,
		maxAge:   models.TempUploadTTL,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron runner. It fails on an invalid
// schedule.
func (s *CleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.runScheduled); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("Cleanup scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a run in progress to finish or ctx to expire.
func (s *CleanupScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("Cleanup scheduler stopped")
}

func (s *CleanupScheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupRunTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Cleanup run failed", zap.Error(err))
	}
}

// RunOnce deletes every stale unused upload. A failure on one item is logged
// and counted; it does not stop the run.
func (s *CleanupScheduler) RunOnce(ctx context.Context) (*models.CleanupReport, error) {
	cutoff := s.now().UTC().Add(-s.maxAge)
	stale, err := s.repo.FindStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &models.CleanupReport{Scanned: len(stale)}
	for _, upload := range stale {
		if ctx.Err() != nil {
			break
		}
		if err := s.storage.Delete(ctx, upload.PublicID); err != nil {
			report.Failed++
			s.logger.Warn("Failed to delete stale image", zap.String("public_id", upload.PublicID), zap.Error(err))
			continue
		}
		if err := s.repo.Delete(ctx, upload.PublicID); err != nil {
			report.Failed++
			s.logger.Warn("Failed to delete temp upload record", zap.String("public_id", upload.PublicID), zap.Error(err))
			continue
		}
		report.Deleted++
	}

	s.logger.Info("Temp upload cleanup finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
	)
	s.recordMetrics(report)
	return report, nil
}

func (s *CleanupScheduler) recordMetrics(report *models.CleanupReport) {
	if s.metrics == nil || !s.metrics.IsEnabled() || report.Deleted == 0 {
		return
	}
	go func(deleted int) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordValue(ctx, awspkg.MetricTempUploadsCleaned, float64(deleted), nil)
	}(report.Deleted)
}
