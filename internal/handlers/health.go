package handlers

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// Health reports process health and store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	storeStatus := "ok"
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		storeStatus = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.JSON(w, code, map[string]interface{}{
		"status":         status,
		"store":          storeStatus,
		"cached_guilds":  h.guilds.Len(),
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	})
}
