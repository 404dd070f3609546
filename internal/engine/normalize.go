package engine

import (
	"github.com/shopspring/decimal"

	"fundcontrol/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// normalizeCallAmount converts a raw call specification into the fixed dollar
// amount snapshotted on the capital call. Percentage calls are evaluated once
// against the commitment in effect at creation time: if the commitment amount
// changes later, previously issued calls keep their historical value.
func (e *Engine) normalizeCallAmount(alloc *models.Allocation, rawAmount decimal.Decimal, amountType models.AmountType) (decimal.Decimal, error) {
	if !rawAmount.IsPositive() {
		return decimal.Zero, validationf("call amount must be positive, got %s", rawAmount)
	}
	switch amountType {
	case models.AmountTypeDollar:
		return rawAmount.Round(2), nil
	case models.AmountTypePercentage:
		if rawAmount.GreaterThan(e.cfg.MaxCallPercent) {
			return decimal.Zero, validationf("call percentage %s exceeds maximum %s", rawAmount, e.cfg.MaxCallPercent)
		}
		return rawAmount.Mul(alloc.Amount).Div(oneHundred).Round(2), nil
	default:
		return decimal.Zero, validationf("unknown amount type %q", amountType)
	}
}
