package engine

import (
	"errors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fundcontrol/internal/models"
)

// CreateAllocation commits capital from a fund to a deal. Exactly one
// allocation may exist per (fund, deal) pair; a second create fails with
// ConflictError.
func (e *Engine) CreateAllocation(fundID, dealID uint, amount decimal.Decimal) (*models.Allocation, error) {
	if fundID == 0 || dealID == 0 {
		return nil, validationf("fund id and deal id are required")
	}
	if !amount.IsPositive() {
		return nil, validationf("allocation amount must be positive, got %s", amount)
	}

	var alloc models.Allocation
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Fund{}, fundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("fund %d not found", fundID)
			}
			return err
		}
		if err := tx.First(&models.Deal{}, dealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("deal %d not found", dealID)
			}
			return err
		}
		var count int64
		if err := tx.Model(&models.Allocation{}).
			Where("fund_id = ? AND deal_id = ?", fundID, dealID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflictf("fund %d already has an allocation for deal %d", fundID, dealID)
		}
		alloc = models.Allocation{
			FundID:       fundID,
			DealID:       dealID,
			Amount:       amount.Round(2),
			Status:       CalculateStatus(amount, decimal.Zero, decimal.Zero),
			CalledAmount: decimal.Zero,
			PaidAmount:   decimal.Zero,
		}
		if err := tx.Create(&alloc).Error; err != nil {
			return err
		}
		return persistFundMetrics(tx, fundID)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"allocation_id": alloc.ID,
		"fund_id":       fundID,
		"deal_id":       dealID,
		"amount":        alloc.Amount,
	}).Info("allocation created")
	return &alloc, nil
}

// GetAllocation fetches one allocation.
func (e *Engine) GetAllocation(allocationID uint) (*models.Allocation, error) {
	var alloc models.Allocation
	if err := e.db.First(&alloc, allocationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("allocation %d not found", allocationID)
		}
		return nil, err
	}
	return &alloc, nil
}

// WriteOff sets the terminal status on an allocation. The status calculator
// is bypassed for the allocation from then on. Writing off twice is a no-op.
func (e *Engine) WriteOff(allocationID uint) (*models.Allocation, error) {
	var alloc models.Allocation
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&alloc, allocationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("allocation %d not found", allocationID)
			}
			return err
		}
		if alloc.Status == models.AllocationWrittenOff {
			return nil
		}
		if err := tx.Model(&alloc).Update("status", models.AllocationWrittenOff).Error; err != nil {
			return err
		}
		alloc.Status = models.AllocationWrittenOff
		// Committed capital excludes written-off allocations, so the fund
		// rollup changes even though no money moved.
		return persistFundMetrics(tx, alloc.FundID)
	})
	if err != nil {
		return nil, err
	}
	log.WithField("allocation_id", allocationID).Info("allocation written off")
	return &alloc, nil
}

// DeleteAllocation removes a commitment that has no capital calls against it,
// cancelled ones included. Allocations are never partially deleted.
func (e *Engine) DeleteAllocation(allocationID uint) error {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var alloc models.Allocation
		if err := forUpdate(tx).First(&alloc, allocationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("allocation %d not found", allocationID)
			}
			return err
		}
		var count int64
		if err := tx.Unscoped().Model(&models.CapitalCall{}).
			Where("allocation_id = ?", allocationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invariantf("allocation %d has %d capital calls and cannot be deleted", allocationID, count)
		}
		if err := tx.Delete(&alloc).Error; err != nil {
			return err
		}
		return persistFundMetrics(tx, alloc.FundID)
	})
	if err != nil {
		return err
	}
	log.WithField("allocation_id", allocationID).Info("allocation deleted")
	return nil
}
