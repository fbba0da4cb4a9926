package server

import (
	"net/http"
	"strconv"

	"github.com/shreedev44/BetterBuddy-api/leaderboard"
)

func handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(leaderboard.DefaultLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeValidationErrors(w, []fieldError{{Field: "limit", Message: "limit must be a positive integer"}})
			return
		}
		limit = parsed
	}

	entries, err := leaderboard.Top(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}
