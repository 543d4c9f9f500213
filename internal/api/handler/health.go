package handler

import (
	"net/http"
)

const serviceName = "touhou-memory-archive"

// HealthResponse reports service liveness for probes and uptime checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: serviceName,
	})
}
