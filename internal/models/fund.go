package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund represents an investment fund. The capital fields are derived caches
// maintained by the reconciliation engine; they are never authoritative inputs.
type Fund struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	Name       string          `gorm:"size:128;not null" json:"name"`
	TargetSize decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"target_size"`
	Vintage    int             `gorm:"default:0" json:"vintage"`

	// Derived, cached by the engine after every allocation-level recompute.
	CommittedCapital decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"committed_capital"`
	CalledCapital    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"called_capital"`
	UncalledCapital  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"uncalled_capital"`
	PaidCapital      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"paid_capital"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Fund) TableName() string {
	return "fund"
}

// FundMetricsSnapshot is a timestamped copy of a fund's derived aggregates,
// recorded by the schedule binary for reporting.
type FundMetricsSnapshot struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	FundID           uint            `gorm:"not null;index" json:"fund_id"`
	CommittedCapital decimal.Decimal `gorm:"type:decimal(20,2)" json:"committed_capital"`
	CalledCapital    decimal.Decimal `gorm:"type:decimal(20,2)" json:"called_capital"`
	UncalledCapital  decimal.Decimal `gorm:"type:decimal(20,2)" json:"uncalled_capital"`
	PaidCapital      decimal.Decimal `gorm:"type:decimal(20,2)" json:"paid_capital"`
	AllocationCount  int             `json:"allocation_count"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}

func (FundMetricsSnapshot) TableName() string {
	return "fund_metrics_snapshot"
}
