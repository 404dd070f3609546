package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fundcontrol/internal/models"
)

// ScopeAll sweeps every allocation.
const ScopeAll = "all"

// RepairReport summarizes one repair sweep.
type RepairReport struct {
	CorrelationID string    `json:"correlation_id"`
	Scope         string    `json:"scope"`
	Inspected     int       `json:"inspected"`
	Repaired      int       `json:"repaired"`
	Failed        int       `json:"failed"`
	AnomalyCount  int       `json:"anomaly_count"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// BatchProgress is emitted after each sweep batch commits.
type BatchProgress struct {
	Batch     int `json:"batch"`
	Inspected int `json:"inspected"`
	Repaired  int `json:"repaired"`
	Failed    int `json:"failed"`
}

// ProgressFunc receives per-batch sweep progress. May be nil.
type ProgressFunc func(BatchProgress)

// recomputeAllocation re-derives an allocation's cached aggregates and status
// inside the caller's transaction, holding a row lock on the allocation. It
// writes only when the stored values differ from canonical and reports
// whether it wrote. Written-off allocations short-circuit: the terminal
// status is never recomputed.
func (e *Engine) recomputeAllocation(tx *gorm.DB, allocationID uint) (*models.Allocation, bool, error) {
	var alloc models.Allocation
	if err := forUpdate(tx).First(&alloc, allocationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, notFoundf("allocation %d not found", allocationID)
		}
		return nil, false, err
	}
	if alloc.Status == models.AllocationWrittenOff {
		return &alloc, false, nil
	}
	totals, err := callTotals(tx, alloc.ID)
	if err != nil {
		return nil, false, err
	}
	status := CalculateStatus(alloc.Amount, totals.TotalCalled, totals.TotalPaid)
	if alloc.CalledAmount.Equal(totals.TotalCalled) &&
		alloc.PaidAmount.Equal(totals.TotalPaid) &&
		alloc.Status == status {
		return &alloc, false, nil
	}
	if err := tx.Model(&alloc).Updates(map[string]interface{}{
		"called_amount": totals.TotalCalled,
		"paid_amount":   totals.TotalPaid,
		"status":        status,
	}).Error; err != nil {
		return nil, false, fmt.Errorf("persist derived fields for allocation %d: %w", alloc.ID, err)
	}
	alloc.CalledAmount = totals.TotalCalled
	alloc.PaidAmount = totals.TotalPaid
	alloc.Status = status
	return &alloc, true, nil
}

// syncAllocation is the transactional recompute entry point: allocation
// first, then the owning fund's rollup, all inside the caller's transaction.
func (e *Engine) syncAllocation(tx *gorm.DB, allocationID uint) (*models.Allocation, error) {
	alloc, _, err := e.recomputeAllocation(tx, allocationID)
	if err != nil {
		return nil, err
	}
	if err := persistFundMetrics(tx, alloc.FundID); err != nil {
		return nil, err
	}
	return alloc, nil
}

// Reconcile runs the repair sweep. Scope is either ScopeAll or a decimal
// allocation id. The sweep is idempotent: with no intervening mutation, a
// second run repairs zero rows. It processes allocations in short
// per-batch transactions so it never holds locks across the full scan, and
// it tolerates per-row failure, logging and continuing rather than aborting.
func (e *Engine) Reconcile(scope, correlationID string, progress ProgressFunc) (*RepairReport, error) {
	if scope == "" {
		scope = ScopeAll
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	var ids []uint
	if scope != ScopeAll {
		id, err := strconv.ParseUint(scope, 10, 64)
		if err != nil {
			return nil, validationf("scope must be %q or an allocation id, got %q", ScopeAll, scope)
		}
		ids = []uint{uint(id)}
	}

	report := &RepairReport{
		CorrelationID: correlationID,
		Scope:         scope,
		StartedAt:     time.Now(),
	}

	run := models.RepairRun{CorrelationID: correlationID, Scope: scope}
	if err := e.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("create repair run: %w", err)
	}

	if scope == ScopeAll {
		if err := e.flagDuplicatePairs(&run, report); err != nil {
			log.Errorf("duplicate pair detection failed: %v", err)
		}
	}

	batch := 0
	lastID := uint(0)
	for {
		batchIDs := ids
		if scope == ScopeAll {
			batchIDs = nil
			err := e.db.Model(&models.Allocation{}).
				Where("id > ?", lastID).
				Order("id ASC").
				Limit(e.cfg.SweepBatchSize).
				Pluck("id", &batchIDs).Error
			if err != nil {
				return nil, fmt.Errorf("scan allocation ids after %d: %w", lastID, err)
			}
		}
		if len(batchIDs) == 0 {
			break
		}
		lastID = batchIDs[len(batchIDs)-1]
		batch++

		prog := BatchProgress{Batch: batch}
		err := e.db.Transaction(func(tx *gorm.DB) error {
			for _, id := range batchIDs {
				prog.Inspected++
				var repaired bool
				var anomalies int
				// Each row runs under its own savepoint: a failure, SQL-level
				// included, rolls back that row's writes alone and leaves the
				// batch transaction usable for the remaining rows.
				rowErr := tx.Transaction(func(rowTx *gorm.DB) error {
					var err error
					repaired, anomalies, err = e.repairOne(rowTx, id, &run)
					return err
				})
				if rowErr != nil {
					prog.Failed++
					log.WithFields(log.Fields{
						"allocation_id":  id,
						"correlation_id": correlationID,
					}).Errorf("repair failed: %v", rowErr)
					continue
				}
				report.AnomalyCount += anomalies
				if repaired {
					prog.Repaired++
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("repair batch %d: %w", batch, err)
		}
		report.Inspected += prog.Inspected
		report.Repaired += prog.Repaired
		report.Failed += prog.Failed
		if progress != nil {
			progress(prog)
		}
		if scope != ScopeAll {
			break
		}
	}

	report.FinishedAt = time.Now()
	if err := e.db.Model(&run).Updates(map[string]interface{}{
		"inspected": report.Inspected,
		"repaired":  report.Repaired,
		"failed":    report.Failed,
	}).Error; err != nil {
		log.Errorf("persist repair run %s: %v", correlationID, err)
	}
	log.WithFields(log.Fields{
		"correlation_id": correlationID,
		"scope":          scope,
		"inspected":      report.Inspected,
		"repaired":       report.Repaired,
		"failed":         report.Failed,
		"anomalies":      report.AnomalyCount,
	}).Info("repair sweep finished")
	return report, nil
}

// repairOne heals a single allocation: re-derives call sub-statuses, flags
// anomalies, and rewrites the allocation's cached fields if they drifted.
// Returns whether any row was written and how many new anomalies were flagged.
func (e *Engine) repairOne(tx *gorm.DB, allocationID uint, run *models.RepairRun) (bool, int, error) {
	var alloc models.Allocation
	if err := forUpdate(tx).First(&alloc, allocationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, notFoundf("allocation %d not found", allocationID)
		}
		return false, 0, err
	}

	repaired := false
	anomalies := 0
	now := time.Now()

	var calls []models.CapitalCall
	if err := tx.Where("allocation_id = ?", alloc.ID).Find(&calls).Error; err != nil {
		return false, 0, err
	}
	for i := range calls {
		call := &calls[i]
		if call.PaidAmount.GreaterThan(call.CallAmount) {
			excess := call.PaidAmount.Sub(call.CallAmount)
			flagged, err := e.flagAnomaly(tx, run, models.RepairAnomaly{
				AnomalyType:   models.AnomalyOverpayment,
				AllocationID:  alloc.ID,
				CapitalCallID: call.ID,
				Excess:        excess,
				Detail:        fmt.Sprintf("capital call %d paid %s against call amount %s", call.ID, call.PaidAmount, call.CallAmount),
			})
			if err != nil {
				return repaired, anomalies, err
			}
			if flagged {
				anomalies++
			}
		}
		derived := DeriveCallStatus(call, now)
		if derived != call.Status {
			if err := tx.Model(call).Update("status", derived).Error; err != nil {
				return repaired, anomalies, err
			}
			repaired = true
		}
	}

	if alloc.Status == models.AllocationWrittenOff {
		return repaired, anomalies, nil
	}

	totals, err := callTotals(tx, alloc.ID)
	if err != nil {
		return repaired, anomalies, err
	}
	if totals.TotalCalled.GreaterThan(alloc.Amount) {
		flagged, err := e.flagAnomaly(tx, run, models.RepairAnomaly{
			AnomalyType:  models.AnomalyCeilingBreach,
			AllocationID: alloc.ID,
			Excess:       totals.TotalCalled.Sub(alloc.Amount),
			Detail:       fmt.Sprintf("called %s exceeds commitment %s", totals.TotalCalled, alloc.Amount),
		})
		if err != nil {
			return repaired, anomalies, err
		}
		if flagged {
			anomalies++
		}
	}
	status := CalculateStatus(alloc.Amount, totals.TotalCalled, totals.TotalPaid)
	if !alloc.CalledAmount.Equal(totals.TotalCalled) ||
		!alloc.PaidAmount.Equal(totals.TotalPaid) ||
		alloc.Status != status {
		if err := tx.Model(&alloc).Updates(map[string]interface{}{
			"called_amount": totals.TotalCalled,
			"paid_amount":   totals.TotalPaid,
			"status":        status,
		}).Error; err != nil {
			return repaired, anomalies, err
		}
		if err := persistFundMetrics(tx, alloc.FundID); err != nil {
			return repaired, anomalies, err
		}
		repaired = true
	}
	return repaired, anomalies, nil
}

// flagAnomaly records an anomaly unless an identical one is already on file.
// A standing anomaly nobody has resolved is observed by every sweep; writing
// it once keeps the nightly cron from growing the table unboundedly. Returns
// whether a new row was written.
func (e *Engine) flagAnomaly(tx *gorm.DB, run *models.RepairRun, anomaly models.RepairAnomaly) (bool, error) {
	var count int64
	err := tx.Model(&models.RepairAnomaly{}).
		Where("anomaly_type = ? AND allocation_id = ? AND capital_call_id = ? AND excess = ?",
			anomaly.AnomalyType, anomaly.AllocationID, anomaly.CapitalCallID, anomaly.Excess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	anomaly.RepairRunID = run.ID
	anomaly.CorrelationID = run.CorrelationID
	if err := tx.Create(&anomaly).Error; err != nil {
		return false, fmt.Errorf("flag %s anomaly on allocation %d: %w", anomaly.AnomalyType, anomaly.AllocationID, err)
	}
	return true, nil
}

// flagDuplicatePairs records an anomaly per (fund, deal) pair holding more
// than one allocation. The sweep never merges on its own; MergeDuplicates is
// an explicit operation.
func (e *Engine) flagDuplicatePairs(run *models.RepairRun, report *RepairReport) error {
	type dupPair struct {
		FundID uint
		DealID uint
		N      int
	}
	var pairs []dupPair
	err := e.db.Model(&models.Allocation{}).
		Select("fund_id, deal_id, COUNT(*) AS n").
		Group("fund_id, deal_id").
		Having("COUNT(*) > 1").
		Scan(&pairs).Error
	if err != nil {
		return err
	}
	for _, p := range pairs {
		detail := fmt.Sprintf("fund %d / deal %d has %d allocations", p.FundID, p.DealID, p.N)
		// Same dedup rule as flagAnomaly: a pair already on file with the
		// same cardinality was flagged by an earlier sweep.
		var count int64
		err := e.db.Model(&models.RepairAnomaly{}).
			Where("anomaly_type = ? AND detail = ?", models.AnomalyDuplicatePair, detail).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		anomaly := models.RepairAnomaly{
			RepairRunID:   run.ID,
			CorrelationID: run.CorrelationID,
			AnomalyType:   models.AnomalyDuplicatePair,
			Detail:        detail,
		}
		if err := e.db.Create(&anomaly).Error; err != nil {
			return err
		}
		report.AnomalyCount++
	}
	return nil
}
