package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"fundcontrol/internal/models"
)

// CalculateStatus is the canonical status formula. Pure, no I/O. The rules
// are order-sensitive: an allocation with capital promised but nothing called
// yet is "committed", never "partially_paid".
//
// A paid amount above the called amount is treated as equal to the called
// amount here; the excess is a data-entry anomaly flagged by the repair
// sweep, not absorbed by this function.
func CalculateStatus(amount, calledAmount, paidAmount decimal.Decimal) models.AllocationStatus {
	switch {
	case amount.IsZero():
		return models.AllocationUnfunded
	case calledAmount.IsZero():
		return models.AllocationCommitted
	case paidAmount.IsZero():
		return models.AllocationCalledUnpaid
	case paidAmount.LessThan(calledAmount):
		return models.AllocationPartiallyPaid
	default:
		return models.AllocationFunded
	}
}

// DeriveCallStatus computes a capital call's sub-status from its payment
// progress and due date. "defaulted" is administrative and terminal, never
// overwritten by derivation.
func DeriveCallStatus(call *models.CapitalCall, now time.Time) models.CapitalCallStatus {
	if call.Status == models.CallDefaulted {
		return models.CallDefaulted
	}
	switch {
	case call.PaidAmount.GreaterThanOrEqual(call.CallAmount):
		return models.CallPaid
	case call.DueDate != nil && now.After(*call.DueDate):
		return models.CallOverdue
	case call.PaidAmount.IsPositive():
		return models.CallPartiallyPaid
	case call.DueDate != nil && now.Before(*call.DueDate):
		return models.CallScheduled
	default:
		return models.CallCalled
	}
}
