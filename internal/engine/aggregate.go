package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fundcontrol/internal/models"
)

// CallTotals is the aggregate of an allocation's non-cancelled capital calls.
type CallTotals struct {
	TotalCalled decimal.Decimal `json:"total_called"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
}

// CallTotals returns the called/paid totals for one allocation as a single
// aggregate query. An allocation with no calls yields {0, 0}.
func (e *Engine) CallTotals(allocationID uint) (CallTotals, error) {
	return callTotals(e.db, allocationID)
}

func callTotals(tx *gorm.DB, allocationID uint) (CallTotals, error) {
	var totals CallTotals
	err := tx.Model(&models.CapitalCall{}).
		Select("COALESCE(SUM(call_amount), 0) AS total_called, COALESCE(SUM(paid_amount), 0) AS total_paid").
		Where("allocation_id = ?", allocationID).
		Scan(&totals).Error
	if err != nil {
		return CallTotals{}, fmt.Errorf("aggregate capital calls for allocation %d: %w", allocationID, err)
	}
	return totals, nil
}

// FundMetrics is the fund-level rollup of allocation aggregates. Written-off
// allocations are excluded from committed capital only; their called and paid
// amounts remain part of the fund's history.
type FundMetrics struct {
	CommittedCapital decimal.Decimal `json:"committed_capital"`
	CalledCapital    decimal.Decimal `json:"called_capital"`
	UncalledCapital  decimal.Decimal `json:"uncalled_capital"`
	PaidCapital      decimal.Decimal `json:"paid_capital"`
	AllocationCount  int             `json:"allocation_count"`
}

// FundMetrics computes the rollup for one fund. A fund with no allocations
// yields all-zero metrics.
func (e *Engine) FundMetrics(fundID uint) (FundMetrics, error) {
	if err := e.db.First(&models.Fund{}, fundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FundMetrics{}, notFoundf("fund %d not found", fundID)
		}
		return FundMetrics{}, err
	}
	return fundMetrics(e.db, fundID)
}

func fundMetrics(tx *gorm.DB, fundID uint) (FundMetrics, error) {
	var m FundMetrics
	err := tx.Model(&models.Allocation{}).
		Select(
			"COALESCE(SUM(CASE WHEN status <> ? THEN amount ELSE 0 END), 0) AS committed_capital, "+
				"COALESCE(SUM(called_amount), 0) AS called_capital, "+
				"COALESCE(SUM(paid_amount), 0) AS paid_capital, "+
				"COUNT(*) AS allocation_count",
			models.AllocationWrittenOff,
		).
		Where("fund_id = ?", fundID).
		Scan(&m).Error
	if err != nil {
		return FundMetrics{}, fmt.Errorf("aggregate allocations for fund %d: %w", fundID, err)
	}
	m.UncalledCapital = decimal.Max(decimal.Zero, m.CommittedCapital.Sub(m.CalledCapital))
	return m, nil
}

// persistFundMetrics recomputes the owning fund's cached aggregates inside
// the caller's transaction, writing only when the stored values differ.
func persistFundMetrics(tx *gorm.DB, fundID uint) error {
	var fund models.Fund
	if err := forUpdate(tx).First(&fund, fundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("fund %d not found", fundID)
		}
		return err
	}
	m, err := fundMetrics(tx, fundID)
	if err != nil {
		return err
	}
	if fund.CommittedCapital.Equal(m.CommittedCapital) &&
		fund.CalledCapital.Equal(m.CalledCapital) &&
		fund.UncalledCapital.Equal(m.UncalledCapital) &&
		fund.PaidCapital.Equal(m.PaidCapital) {
		return nil
	}
	return tx.Model(&fund).Updates(map[string]interface{}{
		"committed_capital": m.CommittedCapital,
		"called_capital":    m.CalledCapital,
		"uncalled_capital":  m.UncalledCapital,
		"paid_capital":      m.PaidCapital,
	}).Error
}
