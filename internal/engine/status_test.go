package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"fundcontrol/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateStatus(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		called string
		paid   string
		want   models.AllocationStatus
	}{
		{"zero commitment", "0", "0", "0", models.AllocationUnfunded},
		{"committed, nothing called", "100000", "0", "0", models.AllocationCommitted},
		{"called, nothing paid", "100000", "25000", "0", models.AllocationCalledUnpaid},
		{"partially paid", "100000", "25000", "15000", models.AllocationPartiallyPaid},
		{"fully paid against called", "100000", "25000", "25000", models.AllocationFunded},
		{"overpaid is clamped to funded", "100000", "25000", "26000", models.AllocationFunded},
		{"funded relative to called, not commitment", "100000", "25000", "25000", models.AllocationFunded},
		{"zero commitment wins over called", "0", "25000", "0", models.AllocationUnfunded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStatus(dec(tt.amount), dec(tt.called), dec(tt.paid))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveCallStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	tests := []struct {
		name    string
		status  models.CapitalCallStatus
		call    string
		paid    string
		dueDate *time.Time
		want    models.CapitalCallStatus
	}{
		{"issued, no due date", models.CallCalled, "25000", "0", nil, models.CallCalled},
		{"future due date, nothing paid", models.CallScheduled, "25000", "0", &future, models.CallScheduled},
		{"partially paid", models.CallCalled, "25000", "10000", nil, models.CallPartiallyPaid},
		{"partially paid with future due date", models.CallCalled, "25000", "10000", &future, models.CallPartiallyPaid},
		{"fully paid", models.CallCalled, "25000", "25000", nil, models.CallPaid},
		{"overpaid counts as paid", models.CallCalled, "25000", "30000", nil, models.CallPaid},
		{"past due, nothing paid", models.CallCalled, "25000", "0", &past, models.CallOverdue},
		{"past due, partially paid", models.CallPartiallyPaid, "25000", "10000", &past, models.CallOverdue},
		{"past due but fully paid", models.CallCalled, "25000", "25000", &past, models.CallPaid},
		{"defaulted is terminal", models.CallDefaulted, "25000", "25000", nil, models.CallDefaulted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &models.CapitalCall{
				Status:     tt.status,
				CallAmount: dec(tt.call),
				PaidAmount: dec(tt.paid),
				DueDate:    tt.dueDate,
			}
			assert.Equal(t, tt.want, DeriveCallStatus(call, now))
		})
	}
}
