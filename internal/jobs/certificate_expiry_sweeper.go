// certificate_expiry_sweeper.go implements the CertificateExpirySweeper background job,
// which periodically moves valid certificates nearing expiry to expiring and lapsed ones
// to expired. Status changes are conditional on the status read, so an admin update
// made between the scan and the write is kept. Each organization with at least one
// change gets a single activity feed line per cycle.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/safego"
	"github.com/outstaff/outstaff/internal/telemetry"
)

// CertificateExpirySweeper periodically updates certificate statuses from their expiry dates.
type CertificateExpirySweeper struct {
	certRepo  *repositories.CertificateRepository
	auditRepo *repositories.AuditRepository
	cfg       *config.CertificateSweeperConfig
	interval  time.Duration
	window    time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// SweepResult summarizes one sweep cycle
type SweepResult struct {
	Expiring int
	Expired  int
	// Orgs lists the organizations that had at least one certificate change
	Orgs []int64
}

// NewCertificateExpirySweeper creates a new CertificateExpirySweeper.
// A non-positive interval defaults to 24h and a non-positive window to 30 days.
func NewCertificateExpirySweeper(
	certRepo *repositories.CertificateRepository,
	auditRepo *repositories.AuditRepository,
	cfg *config.CertificateSweeperConfig,
) *CertificateExpirySweeper {
	hours := cfg.IntervalHours
	if hours <= 0 {
		hours = 24
	}
	window := models.ExpiringSoonWindow
	if cfg.ExpiringWithinDays > 0 {
		window = time.Duration(cfg.ExpiringWithinDays) * 24 * time.Hour
	}
	return &CertificateExpirySweeper{
		certRepo:  certRepo,
		auditRepo: auditRepo,
		cfg:       cfg,
		interval:  time.Duration(hours) * time.Hour,
		window:    window,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start runs a sweep immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (s *CertificateExpirySweeper) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		slog.Info("certificate expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("certificate expiry sweeper started", "interval", s.interval, "window", s.window)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			slog.Info("certificate expiry sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("certificate expiry sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit. Calling it more than once is a no-op.
func (s *CertificateExpirySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *CertificateExpirySweeper) runSweep(ctx context.Context) {
	// A panicking cycle is logged and the next tick tries again
	defer safego.Recover("certificate_sweeper")

	res, err := s.Sweep(ctx)
	if err != nil {
		telemetry.CertificateSweepErrorsTotal.Inc()
		slog.Error("certificate expiry sweep failed", "error", err)
		return
	}
	if res.Expiring+res.Expired > 0 {
		slog.Info("certificate expiry sweep finished",
			"expiring", res.Expiring,
			"expired", res.Expired,
			"organizations", len(res.Orgs),
		)
	}
}

// Sweep performs one cycle. A failed status write skips that certificate; only a
// failed scan fails the cycle.
func (s *CertificateExpirySweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	today := models.TruncateDay(s.now())
	certs, err := s.certRepo.ListSweepable(ctx, today.Add(s.window))
	if err != nil {
		return nil, err
	}

	res := &SweepResult{}
	changed := make(map[int64]int)
	for _, cert := range certs {
		next, ok := cert.SweptStatus(today, s.window)
		if !ok {
			continue
		}
		updated, err := s.certRepo.SetSweptStatus(ctx, cert.ID, cert.Status, next)
		if err != nil {
			slog.Warn("failed to sweep certificate", "certificate_id", cert.ID, "error", err)
			continue
		}
		if !updated {
			continue
		}

		telemetry.CertificatesSweptTotal.WithLabelValues(string(next)).Inc()
		if next == models.CertificateExpired {
			res.Expired++
		} else {
			res.Expiring++
		}
		if _, seen := changed[cert.OrgID]; !seen {
			res.Orgs = append(res.Orgs, cert.OrgID)
		}
		changed[cert.OrgID]++
	}

	for _, orgID := range res.Orgs {
		action := fmt.Sprintf("Certificate expiry check updated %d certificate(s)", changed[orgID])
		if err := s.auditRepo.RecordActivity(ctx, orgID, nil, action); err != nil {
			telemetry.BestEffortWriteFailuresTotal.WithLabelValues("activity_log").Inc()
			slog.Warn("failed to record sweep activity", "org_id", orgID, "error", err)
		}
	}
	return res, nil
}
