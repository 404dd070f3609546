package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"fundcontrol/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is handled by the CORS middleware upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamEvent is one websocket frame: batch progress while the sweep runs,
// then a final frame carrying the report.
type streamEvent struct {
	Type     string                `json:"type"` // "progress" or "report"
	Progress *engine.BatchProgress `json:"progress,omitempty"`
	Report   *engine.RepairReport  `json:"report,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ReconcileStream upgrades to a websocket, runs a sweep for the requested
// scope and streams per-batch progress until the final report.
func ReconcileStream(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := c.DefaultQuery("scope", engine.ScopeAll)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Errorf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		report, err := eng.Reconcile(scope, "", func(p engine.BatchProgress) {
			if writeErr := conn.WriteJSON(streamEvent{Type: "progress", Progress: &p}); writeErr != nil {
				log.Warnf("progress write failed, client likely gone: %v", writeErr)
			}
		})
		if err != nil {
			conn.WriteJSON(streamEvent{Type: "report", Error: err.Error()})
			return
		}
		conn.WriteJSON(streamEvent{Type: "report", Report: report})
	}
}
