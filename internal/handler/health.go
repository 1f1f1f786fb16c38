package handler

import "net/http"

// HandleHealth is the liveness probe.
//
// HTTP: GET /api/health
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Server is healthy"})
}
