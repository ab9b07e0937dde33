package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// readyHandler reports readiness once the session controller has settled.
type readyHandler struct {
	controller SessionControllerAPI
}

func (h readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if !h.controller.Settled().Initialized {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "initializing"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
