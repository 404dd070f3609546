package main

import (
	log "github.com/sirupsen/logrus"

	"fundcontrol/internal/engine"
	"fundcontrol/internal/models"
	dbconfig "fundcontrol/pkg/config"
)

// RunNightlySweep reconciles every allocation and logs the report.
func RunNightlySweep(eng *engine.Engine) error {
	log.Info("> starting nightly repair sweep")

	report, err := eng.Reconcile(engine.ScopeAll, "", nil)
	if err != nil {
		return err
	}

	log.Infof("> nightly sweep done: inspected=%d repaired=%d failed=%d anomalies=%d",
		report.Inspected, report.Repaired, report.Failed, report.AnomalyCount)
	return nil
}

// RecordFundMetricsSnapshots writes a timestamped copy of every fund's
// rollup for reporting.
func RecordFundMetricsSnapshots(eng *engine.Engine) error {
	log.Info("> recording fund metrics snapshots")

	var funds []models.Fund
	if err := dbconfig.DB.Find(&funds).Error; err != nil {
		log.Errorf("> failed to list funds: %v", err)
		return err
	}

	log.Infof("> found %d funds", len(funds))

	for _, fund := range funds {
		metrics, err := eng.FundMetrics(fund.ID)
		if err != nil {
			log.Errorf("> failed to compute metrics for fund %d: %v", fund.ID, err)
			continue
		}

		snapshot := models.FundMetricsSnapshot{
			FundID:           fund.ID,
			CommittedCapital: metrics.CommittedCapital,
			CalledCapital:    metrics.CalledCapital,
			UncalledCapital:  metrics.UncalledCapital,
			PaidCapital:      metrics.PaidCapital,
			AllocationCount:  metrics.AllocationCount,
		}
		if err := dbconfig.DB.Create(&snapshot).Error; err != nil {
			log.Errorf("> failed to create snapshot for fund %d: %v", fund.ID, err)
			continue
		}
	}

	log.Info("> fund metrics snapshots recorded")
	return nil
}
