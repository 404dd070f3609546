package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CapitalCallStatus is the sub-state of a single capital call.
type CapitalCallStatus string

const (
	CallScheduled     CapitalCallStatus = "scheduled"
	CallCalled        CapitalCallStatus = "called"
	CallPartiallyPaid CapitalCallStatus = "partially_paid"
	CallPaid          CapitalCallStatus = "paid"
	CallOverdue       CapitalCallStatus = "overdue"
	CallDefaulted     CapitalCallStatus = "defaulted"
)

// AmountType records how a capital call was originally denominated.
type AmountType string

const (
	AmountTypeDollar     AmountType = "dollar"
	AmountTypePercentage AmountType = "percentage"
)

// CapitalCall is a request for part of a commitment to be paid in. CallAmount
// is fixed in dollars at creation time: percentage-denominated calls are
// converted against the commitment then in effect and never re-evaluated.
// Cancellation is a soft delete, so aggregates over the table naturally skip
// cancelled calls.
type CapitalCall struct {
	ID           uint `gorm:"primarykey" json:"id"`
	AllocationID uint `gorm:"not null;index" json:"allocation_id"`

	CallAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"call_amount"`
	// Original denomination, kept for audit. RawAmount is the value as
	// entered (a percentage when AmountType is "percentage").
	AmountType AmountType      `gorm:"size:12;not null;default:'dollar'" json:"amount_type"`
	RawAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"raw_amount"`

	PaidAmount decimal.Decimal   `gorm:"type:decimal(20,2);default:0" json:"paid_amount"`
	Status     CapitalCallStatus `gorm:"size:20;not null;default:'called'" json:"status"`
	DueDate    *time.Time        `json:"due_date,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Allocation *Allocation `gorm:"foreignKey:AllocationID" json:"allocation,omitempty"`
}

func (CapitalCall) TableName() string {
	return "capital_call"
}

// Payment is an immutable ledger row for money received against a capital
// call. AppliedAmount is the portion credited after clamping at the call
// amount; aggregates derive from the capital call columns, not this ledger.
type Payment struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	CapitalCallID uint            `gorm:"not null;index" json:"capital_call_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	AppliedAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"applied_amount"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (Payment) TableName() string {
	return "payment"
}
