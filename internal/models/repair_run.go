package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepairRun records one execution of the reconciliation repair sweep.
type RepairRun struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CorrelationID string    `gorm:"size:64;index" json:"correlation_id"`
	Scope         string    `gorm:"size:32;not null" json:"scope"` // "all" or an allocation id
	Inspected     int       `json:"inspected"`
	Repaired      int       `json:"repaired"`
	Failed        int       `json:"failed"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (RepairRun) TableName() string {
	return "repair_run"
}

// Anomaly types flagged by the repair sweep.
const (
	AnomalyOverpayment   = "overpayment"
	AnomalyCeilingBreach = "ceiling_breach"
	AnomalyDuplicatePair = "duplicate_pair"
)

// RepairAnomaly is a data-integrity condition the sweep found but does not
// resolve on its own (disposition is a business decision). Overpayment rows
// carry the excess above the call amount.
type RepairAnomaly struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	RepairRunID   uint            `gorm:"not null;index" json:"repair_run_id"`
	CorrelationID string          `gorm:"size:64;index" json:"correlation_id"`
	AnomalyType   string          `gorm:"size:32;not null" json:"anomaly_type"`
	AllocationID  uint            `gorm:"index" json:"allocation_id"`
	CapitalCallID uint            `json:"capital_call_id,omitempty"`
	Excess        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"excess"`
	Detail        string          `gorm:"type:text" json:"detail"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (RepairAnomaly) TableName() string {
	return "repair_anomaly"
}
