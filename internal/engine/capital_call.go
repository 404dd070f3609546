package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fundcontrol/internal/models"
)

// CreateCapitalCall issues a call against a commitment. Percentage calls are
// normalized to a fixed dollar amount immediately; a call that would push the
// cumulative called amount above the commitment fails with
// InvariantViolation and leaves no partial state.
func (e *Engine) CreateCapitalCall(allocationID uint, rawAmount decimal.Decimal, amountType models.AmountType, dueDate *time.Time) (*models.CapitalCall, error) {
	if allocationID == 0 {
		return nil, validationf("allocation id is required")
	}

	var call models.CapitalCall
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var alloc models.Allocation
		if err := forUpdate(tx).First(&alloc, allocationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("allocation %d not found", allocationID)
			}
			return err
		}
		if alloc.Status == models.AllocationWrittenOff {
			return invariantf("allocation %d is written off and cannot be called", allocationID)
		}
		callAmount, err := e.normalizeCallAmount(&alloc, rawAmount, amountType)
		if err != nil {
			return err
		}
		totals, err := callTotals(tx, alloc.ID)
		if err != nil {
			return err
		}
		if totals.TotalCalled.Add(callAmount).GreaterThan(alloc.Amount) {
			return invariantf("call of %s would push called capital to %s, above the %s commitment of allocation %d",
				callAmount, totals.TotalCalled.Add(callAmount), alloc.Amount, alloc.ID)
		}
		status := models.CallCalled
		if dueDate != nil && dueDate.After(time.Now()) {
			status = models.CallScheduled
		}
		call = models.CapitalCall{
			AllocationID: alloc.ID,
			CallAmount:   callAmount,
			AmountType:   amountType,
			RawAmount:    rawAmount,
			PaidAmount:   decimal.Zero,
			Status:       status,
			DueDate:      dueDate,
		}
		if err := tx.Create(&call).Error; err != nil {
			return err
		}
		_, err = e.syncAllocation(tx, alloc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"capital_call_id": call.ID,
		"allocation_id":   allocationID,
		"call_amount":     call.CallAmount,
		"amount_type":     call.AmountType,
	}).Info("capital call created")
	return &call, nil
}

// GetCapitalCall fetches one capital call.
func (e *Engine) GetCapitalCall(capitalCallID uint) (*models.CapitalCall, error) {
	var call models.CapitalCall
	if err := e.db.First(&call, capitalCallID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("capital call %d not found", capitalCallID)
		}
		return nil, err
	}
	return &call, nil
}

// RecordPayment credits money against a capital call. The call's paid amount
// is clamped at the call amount; the full requested amount is kept on the
// payment ledger row so the excess stays visible.
func (e *Engine) RecordPayment(capitalCallID uint, amount decimal.Decimal) (*models.CapitalCall, error) {
	if !amount.IsPositive() {
		return nil, validationf("payment amount must be positive, got %s", amount)
	}

	var call models.CapitalCall
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&call, capitalCallID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("capital call %d not found", capitalCallID)
			}
			return err
		}
		// Lock the allocation row first, then re-read the call under the
		// lock. Two concurrent payments against the same allocation's calls
		// serialize here.
		var alloc models.Allocation
		if err := forUpdate(tx).First(&alloc, call.AllocationID).Error; err != nil {
			return err
		}
		if err := forUpdate(tx).First(&call, capitalCallID).Error; err != nil {
			return err
		}
		if call.Status == models.CallDefaulted {
			return invariantf("capital call %d is defaulted and cannot accept payments", capitalCallID)
		}

		applied := amount
		newPaid := call.PaidAmount.Add(amount)
		if newPaid.GreaterThan(call.CallAmount) {
			applied = call.CallAmount.Sub(call.PaidAmount)
			newPaid = call.CallAmount
			log.WithFields(log.Fields{
				"capital_call_id": call.ID,
				"requested":       amount,
				"applied":         applied,
			}).Warn("payment clamped at call amount")
		}
		payment := models.Payment{
			CapitalCallID: call.ID,
			Amount:        amount,
			AppliedAmount: applied,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		call.PaidAmount = newPaid
		status := DeriveCallStatus(&call, time.Now())
		if err := tx.Model(&call).Updates(map[string]interface{}{
			"paid_amount": newPaid,
			"status":      status,
		}).Error; err != nil {
			return err
		}
		call.Status = status
		_, err := e.syncAllocation(tx, call.AllocationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"capital_call_id": capitalCallID,
		"paid_amount":     call.PaidAmount,
		"status":          call.Status,
	}).Info("payment recorded")
	return &call, nil
}

// CancelCapitalCall cancels a call that has no payments against it. The call
// is soft-deleted, so it drops out of every aggregate but stays on record.
func (e *Engine) CancelCapitalCall(capitalCallID uint) error {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var call models.CapitalCall
		if err := tx.First(&call, capitalCallID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("capital call %d not found", capitalCallID)
			}
			return err
		}
		var alloc models.Allocation
		if err := forUpdate(tx).First(&alloc, call.AllocationID).Error; err != nil {
			return err
		}
		if call.PaidAmount.IsPositive() {
			return invariantf("capital call %d has payments and cannot be cancelled", capitalCallID)
		}
		if err := tx.Delete(&call).Error; err != nil {
			return err
		}
		_, err := e.syncAllocation(tx, call.AllocationID)
		return err
	})
	if err != nil {
		return err
	}
	log.WithField("capital_call_id", capitalCallID).Info("capital call cancelled")
	return nil
}

// MarkCallDefaulted sets the administrative terminal sub-status on a call.
// The called amount still counts against the commitment.
func (e *Engine) MarkCallDefaulted(capitalCallID uint) (*models.CapitalCall, error) {
	var call models.CapitalCall
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&call, capitalCallID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("capital call %d not found", capitalCallID)
			}
			return err
		}
		var alloc models.Allocation
		if err := forUpdate(tx).First(&alloc, call.AllocationID).Error; err != nil {
			return err
		}
		if call.Status == models.CallDefaulted {
			return nil
		}
		if err := tx.Model(&call).Update("status", models.CallDefaulted).Error; err != nil {
			return err
		}
		call.Status = models.CallDefaulted
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("capital_call_id", capitalCallID).Info("capital call marked defaulted")
	return &call, nil
}
