package engine

// Queue names for async reconciliation.
const (
	ReconcileRequestQueue = "allocation_reconcile"
	ReconcileReportQueue  = "allocation_reconcile_report"
)

// ReconcileRequest is the message the API publishes and the worker consumes.
type ReconcileRequest struct {
	Scope         string `json:"scope"`
	CorrelationID string `json:"correlation_id"`
}
