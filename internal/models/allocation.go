package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStatus is the derived funding state of an allocation.
type AllocationStatus string

const (
	AllocationUnfunded      AllocationStatus = "unfunded"
	AllocationCommitted     AllocationStatus = "committed"
	AllocationCalledUnpaid  AllocationStatus = "called_unpaid"
	AllocationPartiallyPaid AllocationStatus = "partially_paid"
	AllocationFunded        AllocationStatus = "funded"
	AllocationWrittenOff    AllocationStatus = "written_off"
)

// Allocation is a fund's commitment of capital to a deal. Amount is the
// ceiling for capital calls; Status, CalledAmount and PaidAmount are derived
// caches owned by the reconciliation engine. Exactly one allocation may exist
// per (fund, deal) pair.
type Allocation struct {
	ID     uint `gorm:"primarykey" json:"id"`
	FundID uint `gorm:"not null;index:idx_allocation_fund_deal" json:"fund_id"`
	DealID uint `gorm:"not null;index:idx_allocation_fund_deal" json:"deal_id"`

	Amount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`

	Status       AllocationStatus `gorm:"size:20;not null;default:'committed'" json:"status"`
	CalledAmount decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"called_amount"`
	PaidAmount   decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"paid_amount"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Fund *Fund `gorm:"foreignKey:FundID" json:"fund,omitempty"`
	Deal *Deal `gorm:"foreignKey:DealID" json:"deal,omitempty"`
}

func (Allocation) TableName() string {
	return "allocation"
}
