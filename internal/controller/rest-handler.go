package controller

import (
	"encoding/json"
	"net/http"
)

func (c controller) GetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.playerHost.Snapshot()); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write state", "error", err)
	}
}
