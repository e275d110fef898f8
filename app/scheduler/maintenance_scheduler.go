package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
)

// MaintenanceScheduler keeps the call record store and auth artifact
// tables bounded and the talkgroup directory fresh. All jobs are
// independent and idempotent; one failing job never prevents the others
// from running or the schedule from continuing.
type MaintenanceScheduler struct {
	callRepo    repository.CallRecordRepository
	sessionRepo repository.UserSessionRepository
	tokenRepo   repository.VerificationTokenRepository
	tgRepo      repository.TalkgroupRepository
	csvClient   *TalkgroupCSVClient
	logger      *log.Logger

	retentionAge time.Duration
	interval     time.Duration
	refreshHour  int
}

// NewMaintenanceScheduler creates the scheduler. Zero durations fall back
// to the standard retention and cadence.
func NewMaintenanceScheduler(
	callRepo repository.CallRecordRepository,
	sessionRepo repository.UserSessionRepository,
	tokenRepo repository.VerificationTokenRepository,
	tgRepo repository.TalkgroupRepository,
	csvClient *TalkgroupCSVClient,
	logger *log.Logger,
	retentionAge time.Duration,
	interval time.Duration,
	refreshHour int,
) *MaintenanceScheduler {
	if retentionAge <= 0 {
		retentionAge = utils.CallRetentionAge
	}
	if interval <= 0 {
		interval = utils.MaintenanceInterval
	}
	if refreshHour < 0 || refreshHour > 23 {
		refreshHour = utils.TalkgroupRefreshHour
	}
	if logger == nil {
		logger = log.Default()
	}

	return &MaintenanceScheduler{
		callRepo:     callRepo,
		sessionRepo:  sessionRepo,
		tokenRepo:    tokenRepo,
		tgRepo:       tgRepo,
		csvClient:    csvClient,
		logger:       logger,
		retentionAge: retentionAge,
		interval:     interval,
		refreshHour:  refreshHour,
	}
}

// Start launches the retention loop and the daily refresh loop in
// background goroutines and returns a stop function.
func (s *MaintenanceScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunRetentionOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunRetentionOnce(ctx)
			}
		}
	}()

	go s.runRefreshLoop(ctx)

	return cancel
}

// RunRetentionOnce executes all pruning jobs. Each failure is logged and
// isolated from the others.
func (s *MaintenanceScheduler) RunRetentionOnce(ctx context.Context) {
	cutoff := utils.UTCNow().Add(-s.retentionAge).Unix()
	if deleted, err := s.callRepo.PruneOlderThan(ctx, cutoff); err != nil {
		s.logger.Printf("scheduler: call record pruning failed: %v", err)
	} else if deleted > 0 {
		s.logger.Printf("scheduler: pruned %d call records older than %s", deleted, s.retentionAge)
	}

	if deleted, err := s.tokenRepo.DeleteExpired(ctx); err != nil {
		s.logger.Printf("scheduler: verification token pruning failed: %v", err)
	} else if deleted > 0 {
		s.logger.Printf("scheduler: pruned %d expired verification tokens", deleted)
	}

	if deleted, err := s.sessionRepo.DeleteExpired(ctx); err != nil {
		s.logger.Printf("scheduler: session pruning failed: %v", err)
	} else if deleted > 0 {
		s.logger.Printf("scheduler: pruned %d expired sessions", deleted)
	}
}

// runRefreshLoop refreshes the talkgroup directory immediately when the
// table is empty, then once daily at the configured wall-clock hour.
func (s *MaintenanceScheduler) runRefreshLoop(ctx context.Context) {
	count, err := s.tgRepo.Count(ctx, models.TalkgroupFilter{})
	if err != nil {
		s.logger.Printf("scheduler: talkgroup count failed: %v", err)
	} else if count == 0 {
		s.logger.Printf("scheduler: talkgroup directory empty, refreshing now")
		s.RefreshTalkgroups(ctx)
	}

	for {
		next := utils.NextWallClockHour(time.Now(), s.refreshHour)
		delay := time.Until(next)
		s.logger.Printf("scheduler: next talkgroup refresh at %s", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			s.RefreshTalkgroups(ctx)
		}
	}
}

// RefreshTalkgroups fetches the directory CSV and upserts its rows. A
// failed fetch leaves the existing directory untouched.
func (s *MaintenanceScheduler) RefreshTalkgroups(ctx context.Context) {
	entries, err := s.csvClient.Fetch(ctx)
	if err != nil {
		s.logger.Printf("scheduler: talkgroup refresh failed: %v", err)
		return
	}
	if len(entries) == 0 {
		s.logger.Printf("scheduler: talkgroup refresh returned no rows, keeping existing directory")
		return
	}

	if err := s.tgRepo.UpsertBatch(ctx, entries); err != nil {
		s.logger.Printf("scheduler: talkgroup upsert failed: %v", err)
		return
	}

	s.logger.Printf("scheduler: talkgroup directory refreshed with %d entries", len(entries))
}
