package http

import "net/http"

// GET /health
func HealthHandler(rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.JSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Testcraft AI API is running"})
	}
}
