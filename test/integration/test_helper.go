package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points at a running API server; override with FUNDCONTROL_TEST_URL.
var BaseURL = "http://localhost:8080"

var serverUp bool

func TestMain(m *testing.M) {
	if url := os.Getenv("FUNDCONTROL_TEST_URL"); url != "" {
		BaseURL = url
	}

	// Wait for the server to come up.
	for i := 0; i < 10; i++ {
		resp, err := http.Get(BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			serverUp = resp.StatusCode == http.StatusOK
			if serverUp {
				break
			}
		}
		time.Sleep(time.Second)
	}

	os.Exit(m.Run())
}

func requireServer(t *testing.T) {
	t.Helper()
	if !serverUp {
		t.Skipf("no API server at %s", BaseURL)
	}
}
