package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"CustodiaLegalSaas/internal/config"
	"CustodiaLegalSaas/internal/logger"
	"CustodiaLegalSaas/internal/serviceiface"
)

// CronService runs the scheduled background jobs; currently the nightly
// contract-expiry scan.
type CronService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &CronService{config: cfg, pool: pool}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	schedule := config.DefaultExpirySchedule
	windowDays := config.DefaultExpiryWindow
	if s.config != nil {
		if v, ok := s.config["expiry_schedule"].(string); ok && v != "" {
			schedule = v
		}
		switch v := s.config["expiry_window_days"].(type) {
		case int:
			if v > 0 {
				windowDays = v
			}
		case float64:
			if v > 0 {
				windowDays = int(v)
			}
		}
	}

	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		loc = time.UTC
		log.Printf("[ERROR] invalid timezone %s, falling back to UTC: %v", config.DefaultTimeZone, err)
	}

	s.cron = cron.New(cron.WithLocation(loc))
	_, err = s.cron.AddFunc(schedule, func() {
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit("Starting contract-expiry scan")
		}
		if err := ScanExpiringContracts(s.pool, windowDays); err != nil {
			log.Printf("[ERROR] contract-expiry scan failed: %v", err)
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("Contract-expiry scan failed: %v", err))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("unable to schedule contract-expiry scan: %w", err)
	}

	s.cron.Start()
	log.Printf("[AUDIT] contract-expiry scheduler started: %s (%s)", schedule, config.DefaultTimeZone)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return nil
}
