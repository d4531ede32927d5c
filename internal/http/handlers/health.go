package handlers

import (
	"net/http"
)

// Health reports liveness; it carries no dependency checks so the endpoint
// stays usable while the database or model backends are down.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "service": "creativeagent"})
}
