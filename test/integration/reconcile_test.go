package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type RepairReport struct {
	CorrelationID string `json:"correlation_id"`
	Scope         string `json:"scope"`
	Inspected     int    `json:"inspected"`
	Repaired      int    `json:"repaired"`
	Failed        int    `json:"failed"`
	AnomalyCount  int    `json:"anomaly_count"`
}

type RepairRun struct {
	ID            uint   `json:"id"`
	CorrelationID string `json:"correlation_id"`
	Scope         string `json:"scope"`
	Inspected     int    `json:"inspected"`
}

func TestReconcileAPI(t *testing.T) {
	requireServer(t)

	var correlationID string

	t.Run("Run Full Sweep", func(t *testing.T) {
		resp := postJSON(t, "/reconcile", map[string]interface{}{"scope": "all"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report RepairReport
		decode(t, resp, &report)
		assert.Equal(t, "all", report.Scope)
		assert.NotEmpty(t, report.CorrelationID)
		assert.Zero(t, report.Failed)
		correlationID = report.CorrelationID
	})

	t.Run("Second Sweep Repairs Nothing", func(t *testing.T) {
		resp := postJSON(t, "/reconcile", map[string]interface{}{"scope": "all"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report RepairReport
		decode(t, resp, &report)
		assert.Zero(t, report.Repaired)
		assert.Zero(t, report.Failed)
	})

	t.Run("Invalid Scope Rejected", func(t *testing.T) {
		resp := postJSON(t, "/reconcile", map[string]interface{}{"scope": "everything"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("List Repair Runs", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/repair-runs")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var runs []RepairRun
		decode(t, resp, &runs)
		require.NotEmpty(t, runs)

		found := false
		for _, run := range runs {
			if run.CorrelationID == correlationID {
				found = true
				break
			}
		}
		assert.True(t, found, "sweep run %s not listed", correlationID)
	})

	t.Run("List Run Anomalies", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/repair-runs/%s/anomalies", BaseURL, correlationID))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var anomalies []json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&anomalies))
	})
}
