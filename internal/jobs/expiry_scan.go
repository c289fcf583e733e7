package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/contracts"
	"CustodiaLegalSaas/internal/config"
	"CustodiaLegalSaas/internal/logger"
)

// ScanExpiringContracts walks all active clients, recomputes each contract's
// validity and writes an expiry alert into audit_trail for every contract
// expiring within windowDays. Clients whose validity degrades to
// indeterminate are alerted too: someone has to fix the legacy record before
// the contract silently lapses.
func ScanExpiringContracts(pool *pgxpool.Pool, windowDays int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	startTime := time.Now()
	var scanned, expiring, indeterminate int

	lastID := ""
	for {
		rows, err := pool.Query(ctx, `SELECT client_id, placement_date, contract_date, contract_duration
			FROM clients
			WHERE status = 'Active' AND client_id > $1
			ORDER BY client_id LIMIT $2`, lastID, config.ExpiryScanBatchSize)
		if err != nil {
			return fmt.Errorf("load active clients: %w", err)
		}

		batch := []contracts.ClientContract{}
		for rows.Next() {
			var c contracts.ClientContract
			var placementDate, contractDate *time.Time
			if err := rows.Scan(&c.ClientID, &placementDate, &contractDate, &c.ContractDuration); err != nil {
				rows.Close()
				return fmt.Errorf("scan client row: %w", err)
			}
			if placementDate != nil {
				c.PlacementDate = *placementDate
			}
			if contractDate != nil {
				c.ContractDate = *contractDate
			}
			batch = append(batch, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate clients: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			lastID = c.ClientID
			scanned++

			renewals, err := loadRenewalsForScan(ctx, pool, c.ClientID)
			if err != nil {
				api.LogError("expiry scan: renewals for %s: %v", c.ClientID, err)
				continue
			}

			v := contracts.ComputeValidity(c, renewals)
			if !v.Determinate {
				indeterminate++
				api.WriteAuditTrail(pool, "contract_expiry", c.ClientID, "ALERT",
					"validity indeterminate: "+v.Reason, "system")
				continue
			}
			if v.Snapshot.DaysRemaining >= 0 && v.Snapshot.DaysRemaining <= windowDays {
				expiring++
				api.WriteAuditTrail(pool, "contract_expiry", c.ClientID, "ALERT",
					fmt.Sprintf("contract expires %s (%d days remaining)",
						v.Snapshot.ExpirationDate.Format("2006-01-02"), v.Snapshot.DaysRemaining),
					"system")
			}
		}

		if len(batch) < config.ExpiryScanBatchSize {
			break
		}
	}

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf(
			"Expiry scan finished in %s: %d clients, %d expiring within %d days, %d indeterminate",
			time.Since(startTime).Round(time.Millisecond), scanned, expiring, windowDays, indeterminate))
	}
	return nil
}

func loadRenewalsForScan(ctx context.Context, pool *pgxpool.Pool, clientID string) ([]contracts.Renewal, error) {
	rows, err := pool.Query(ctx, `SELECT renewal_id, renewal_date, renewal_duration, COALESCE(document_ref, '')
		FROM renewals WHERE client_id = $1 ORDER BY renewal_date DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renewals []contracts.Renewal
	for rows.Next() {
		var ren contracts.Renewal
		if err := rows.Scan(&ren.RenewalID, &ren.RenewalDate, &ren.RenewalDuration, &ren.DocumentRef); err != nil {
			return nil, err
		}
		renewals = append(renewals, ren)
	}
	return renewals, rows.Err()
}
