package engine

import (
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fundcontrol/internal/models"
)

// MergeDuplicates collapses every allocation for a (fund, deal) pair into the
// most recently created one. Duplicates should be prevented at creation time;
// this repairs data that predates the check. The merge is one atomic
// transaction: the survivor's amount becomes the sum across the set, the
// losers' capital calls are re-pointed at the survivor, the losers are
// deleted, and the survivor's status and the fund's rollup are recomputed. A
// failure anywhere rolls back the whole merge.
func (e *Engine) MergeDuplicates(fundID, dealID uint) (*models.Allocation, error) {
	if fundID == 0 || dealID == 0 {
		return nil, validationf("fund id and deal id are required")
	}

	var survivor *models.Allocation
	merged := 0
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var allocs []models.Allocation
		if err := forUpdate(tx).
			Where("fund_id = ? AND deal_id = ?", fundID, dealID).
			Order("created_at ASC, id ASC").
			Find(&allocs).Error; err != nil {
			return err
		}
		if len(allocs) == 0 {
			return notFoundf("no allocation for fund %d and deal %d", fundID, dealID)
		}
		if len(allocs) == 1 {
			survivor = &allocs[0]
			return nil
		}

		last := allocs[len(allocs)-1]
		total := decimal.Zero
		loserIDs := make([]uint, 0, len(allocs)-1)
		for _, a := range allocs {
			total = total.Add(a.Amount)
			if a.ID != last.ID {
				loserIDs = append(loserIDs, a.ID)
			}
		}
		merged = len(loserIDs)

		// Re-point the losers' calls (cancelled ones included) so nothing
		// orphans, then let the canonical recompute pick up their paid and
		// called amounts.
		if err := tx.Unscoped().Model(&models.CapitalCall{}).
			Where("allocation_id IN ?", loserIDs).
			Update("allocation_id", last.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&last).Update("amount", total).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Allocation{}, loserIDs).Error; err != nil {
			return err
		}
		alloc, err := e.syncAllocation(tx, last.ID)
		if err != nil {
			return err
		}
		survivor = alloc
		return nil
	})
	if err != nil {
		return nil, err
	}
	if merged > 0 {
		log.WithFields(log.Fields{
			"fund_id":       fundID,
			"deal_id":       dealID,
			"survivor_id":   survivor.ID,
			"merged_count":  merged,
			"merged_amount": survivor.Amount,
		}).Info("duplicate allocations merged")
	}
	return survivor, nil
}
