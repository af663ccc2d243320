package handlers

import (
	"net/http"
	"runtime"
	"time"
)

// HealthResponse keeps a stable key order in the /health body.
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// HealthCheck reports backend availability, counters and process stats.
//
// GET /health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, code := h.health.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := "unknown"
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		uptime = formatUptimeHuman(h.now().Sub(start).Truncate(time.Second))
	}

	h.RespondWithJSON(w, code, HealthResponse{
		Status: status,
		Uptime: uptime,
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}
