package handlers

import (
	"context"
	"net/http"
	"time"

	"lipsync/internal/httpkit"
)

func defaultPingTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "lipsync-api",
		"version": h.version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" && check["status"] != "not_connected" && check["status"] != "disabled" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	return map[string]map[string]any{
		"record_store": h.checkStore(ctx),
		"redis":        h.checkRedis(ctx),
		"media_host":   {"status": "ok", "provider": h.flow.HostName()},
		"inference":    {"status": "ok", "provider": h.inference},
	}
}

// checkStore pings the store only when a connection already exists; the
// health check never dials on its own.
func (h *Handler) checkStore(ctx context.Context) map[string]any {
	store, ok := h.store.Peek()
	if !ok {
		return map[string]any{"status": "not_connected"}
	}

	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := h.pingTimeout(ctx)
	defer cancel()

	if err := store.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkRedis(ctx context.Context) map[string]any {
	if h.rdb == nil {
		return map[string]any{"status": "disabled"}
	}

	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := h.pingTimeout(ctx)
	defer cancel()

	if err := h.rdb.Ping(checkCtx).Err(); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
