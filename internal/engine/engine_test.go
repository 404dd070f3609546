package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fundcontrol/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Fund{},
		&models.Deal{},
		&models.Allocation{},
		&models.CapitalCall{},
		&models.Payment{},
		&models.RepairRun{},
		&models.RepairAnomaly{},
		&models.FundMetricsSnapshot{},
	))
	return New(db, DefaultConfig())
}

func seedFundAndDeal(t *testing.T, e *Engine) (uint, uint) {
	t.Helper()
	fund := models.Fund{Name: "Growth Fund I", TargetSize: dec("50000000"), Vintage: 2024}
	require.NoError(t, e.db.Create(&fund).Error)
	deal := models.Deal{Name: "Acme Robotics", Sector: "industrial"}
	require.NoError(t, e.db.Create(&deal).Error)
	return fund.ID, deal.ID
}

func TestAllocationLifecycle(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)

	// Commit $100,000: nothing called yet, so the allocation is committed,
	// never partially_paid.
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	assert.Equal(t, models.AllocationCommitted, alloc.Status)
	assert.True(t, alloc.CalledAmount.IsZero())

	metrics, err := e.FundMetrics(fundID)
	require.NoError(t, err)
	assert.True(t, metrics.CommittedCapital.Equal(dec("100000")), "committed %s", metrics.CommittedCapital)
	assert.True(t, metrics.UncalledCapital.Equal(dec("100000")), "uncalled %s", metrics.UncalledCapital)

	// Call 25% of the commitment: $25,000 fixed at creation.
	call, err := e.CreateCapitalCall(alloc.ID, dec("25"), models.AmountTypePercentage, nil)
	require.NoError(t, err)
	assert.True(t, call.CallAmount.Equal(dec("25000")), "call amount %s", call.CallAmount)
	assert.Equal(t, models.CallCalled, call.Status)

	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationCalledUnpaid, alloc.Status)
	assert.True(t, alloc.CalledAmount.Equal(dec("25000")))

	// Pay $15,000 against the call.
	call, err = e.RecordPayment(call.ID, dec("15000"))
	require.NoError(t, err)
	assert.Equal(t, models.CallPartiallyPaid, call.Status)

	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationPartiallyPaid, alloc.Status)
	assert.True(t, alloc.PaidAmount.Equal(dec("15000")))

	// Pay the remaining $10,000: funded relative to the called amount, not
	// the full commitment.
	call, err = e.RecordPayment(call.ID, dec("10000"))
	require.NoError(t, err)
	assert.Equal(t, models.CallPaid, call.Status)

	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationFunded, alloc.Status)
	assert.True(t, alloc.PaidAmount.Equal(dec("25000")))

	metrics, err = e.FundMetrics(fundID)
	require.NoError(t, err)
	assert.True(t, metrics.CalledCapital.Equal(dec("25000")))
	assert.True(t, metrics.PaidCapital.Equal(dec("25000")))
	assert.True(t, metrics.UncalledCapital.Equal(dec("75000")))
}

func TestCreateAllocationValidation(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)

	var validation *ValidationError
	_, err := e.CreateAllocation(0, dealID, dec("100000"))
	require.ErrorAs(t, err, &validation)

	_, err = e.CreateAllocation(fundID, dealID, dec("0"))
	require.ErrorAs(t, err, &validation)

	var notFound *NotFoundError
	_, err = e.CreateAllocation(fundID+1000, dealID, dec("100000"))
	require.ErrorAs(t, err, &notFound)

	_, err = e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)

	var conflict *ConflictError
	_, err = e.CreateAllocation(fundID, dealID, dec("50000"))
	require.ErrorAs(t, err, &conflict)
}

func TestCapitalCallCeiling(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)

	_, err = e.CreateCapitalCall(alloc.ID, dec("80000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	var invariant *InvariantViolation
	_, err = e.CreateCapitalCall(alloc.ID, dec("30000"), models.AmountTypeDollar, nil)
	require.ErrorAs(t, err, &invariant)

	// No partial state: the rejected call left nothing behind and the
	// derived fields still reflect only the first call.
	var count int64
	require.NoError(t, e.db.Model(&models.CapitalCall{}).Where("allocation_id = ?", alloc.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.True(t, alloc.CalledAmount.Equal(dec("80000")))

	// Calling exactly up to the ceiling is allowed.
	_, err = e.CreateCapitalCall(alloc.ID, dec("20000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)
}

func TestPaymentClamp(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	call, err = e.RecordPayment(call.ID, dec("30000"))
	require.NoError(t, err)
	assert.True(t, call.PaidAmount.Equal(dec("25000")), "paid %s", call.PaidAmount)
	assert.Equal(t, models.CallPaid, call.Status)

	// The ledger keeps the requested amount; only the clamped portion was
	// applied.
	var payment models.Payment
	require.NoError(t, e.db.Where("capital_call_id = ?", call.ID).First(&payment).Error)
	assert.True(t, payment.Amount.Equal(dec("30000")))
	assert.True(t, payment.AppliedAmount.Equal(dec("25000")))

	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.True(t, alloc.PaidAmount.Equal(dec("25000")))
}

func TestPercentageCallSnapshotSemantics(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25"), models.AmountTypePercentage, nil)
	require.NoError(t, err)
	require.True(t, call.CallAmount.Equal(dec("25000")))

	// Commitment changes after the fact (bypassing the engine, as legacy
	// tooling did). The issued call is a historical instrument and must not
	// move.
	require.NoError(t, e.db.Model(&models.Allocation{}).Where("id = ?", alloc.ID).Update("amount", dec("200000")).Error)

	_, err = e.Reconcile(ScopeAll, "", nil)
	require.NoError(t, err)

	call, err = e.GetCapitalCall(call.ID)
	require.NoError(t, err)
	assert.True(t, call.CallAmount.Equal(dec("25000")), "call amount moved to %s", call.CallAmount)
}

func TestWriteOffShortCircuit(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	alloc, err = e.WriteOff(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationWrittenOff, alloc.Status)

	// The calculator is bypassed from now on: neither the sweep nor further
	// payments may resurrect a derived status.
	_, err = e.Reconcile(ScopeAll, "", nil)
	require.NoError(t, err)
	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationWrittenOff, alloc.Status)

	_, err = e.RecordPayment(call.ID, dec("5000"))
	require.NoError(t, err)
	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationWrittenOff, alloc.Status)

	// Written-off allocations drop out of committed capital but their money
	// history stays.
	metrics, err := e.FundMetrics(fundID)
	require.NoError(t, err)
	assert.True(t, metrics.CommittedCapital.IsZero(), "committed %s", metrics.CommittedCapital)
	assert.True(t, metrics.CalledCapital.Equal(dec("25000")))

	// Calling capital on a written-off allocation is rejected.
	var invariant *InvariantViolation
	_, err = e.CreateCapitalCall(alloc.ID, dec("10000"), models.AmountTypeDollar, nil)
	require.ErrorAs(t, err, &invariant)

	// Writing off twice is a no-op.
	alloc, err = e.WriteOff(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationWrittenOff, alloc.Status)
}

func TestDeleteAllocation(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	var invariant *InvariantViolation
	err = e.DeleteAllocation(alloc.ID)
	require.ErrorAs(t, err, &invariant)

	// A cancelled call still blocks deletion; the allocation has history.
	require.NoError(t, e.CancelCapitalCall(call.ID))
	err = e.DeleteAllocation(alloc.ID)
	require.ErrorAs(t, err, &invariant)

	// An allocation that never had calls deletes cleanly.
	deal2 := models.Deal{Name: "Beta Logistics", Sector: "transport"}
	require.NoError(t, e.db.Create(&deal2).Error)
	alloc2, err := e.CreateAllocation(fundID, deal2.ID, dec("50000"))
	require.NoError(t, err)
	require.NoError(t, e.DeleteAllocation(alloc2.ID))

	var notFound *NotFoundError
	_, err = e.GetAllocation(alloc2.ID)
	require.ErrorAs(t, err, &notFound)
}

func TestCancelCapitalCall(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	require.NoError(t, e.CancelCapitalCall(call.ID))

	// The cancelled call drops out of every aggregate and frees headroom.
	alloc, err = e.GetAllocation(alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationCommitted, alloc.Status)
	assert.True(t, alloc.CalledAmount.IsZero())

	_, err = e.CreateCapitalCall(alloc.ID, dec("100000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	// A call with payments cannot be cancelled.
	call2, err := e.GetCapitalCall(callIDForAllocation(t, e, alloc.ID))
	require.NoError(t, err)
	_, err = e.RecordPayment(call2.ID, dec("1000"))
	require.NoError(t, err)

	var invariant *InvariantViolation
	err = e.CancelCapitalCall(call2.ID)
	require.ErrorAs(t, err, &invariant)
}

func callIDForAllocation(t *testing.T, e *Engine, allocationID uint) uint {
	t.Helper()
	var call models.CapitalCall
	require.NoError(t, e.db.Where("allocation_id = ?", allocationID).Order("id DESC").First(&call).Error)
	return call.ID
}

func TestFundMetricsEmptyFund(t *testing.T) {
	e := newTestEngine(t)
	fund := models.Fund{Name: "Empty Fund"}
	require.NoError(t, e.db.Create(&fund).Error)

	metrics, err := e.FundMetrics(fund.ID)
	require.NoError(t, err)
	assert.True(t, metrics.CommittedCapital.IsZero())
	assert.True(t, metrics.CalledCapital.IsZero())
	assert.True(t, metrics.UncalledCapital.IsZero())
	assert.True(t, metrics.PaidCapital.IsZero())
	assert.Zero(t, metrics.AllocationCount)

	var notFound *NotFoundError
	_, err = e.FundMetrics(fund.ID + 999)
	require.ErrorAs(t, err, &notFound)
}

func TestCallTotalsZeroCalls(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)

	totals, err := e.CallTotals(alloc.ID)
	require.NoError(t, err)
	assert.True(t, totals.TotalCalled.IsZero())
	assert.True(t, totals.TotalPaid.IsZero())
}

func TestMarkCallDefaulted(t *testing.T) {
	e := newTestEngine(t)
	fundID, dealID := seedFundAndDeal(t, e)
	alloc, err := e.CreateAllocation(fundID, dealID, dec("100000"))
	require.NoError(t, err)
	call, err := e.CreateCapitalCall(alloc.ID, dec("25000"), models.AmountTypeDollar, nil)
	require.NoError(t, err)

	call, err = e.MarkCallDefaulted(call.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CallDefaulted, call.Status)

	var invariant *InvariantViolation
	_, err = e.RecordPayment(call.ID, dec("1000"))
	require.ErrorAs(t, err, &invariant)

	// The sweep never overwrites the administrative sub-status.
	_, err = e.Reconcile(ScopeAll, "", nil)
	require.NoError(t, err)
	call, err = e.GetCapitalCall(call.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CallDefaulted, call.Status)
}
