package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wagerboardAPI/services"
)

const (
	// one upstream call worst case, plus slack
	singleSiteTimeout = 35 * time.Second
	// four sequential upstream calls worst case
	allSitesTimeout = 150 * time.Second
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// Root is the liveness endpoint at GET /api/.
func (h *LeaderboardHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Wagerboard API",
		"status":  "online",
	})
}

// GetLeaderboard serves one site's snapshot, cached or live.
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), singleSiteTimeout)
	defer cancel()

	siteID := mux.Vars(r)["siteID"]

	data, err := h.leaderboardService.Resolve(ctx, siteID)
	if err != nil {
		if errors.Is(err, services.ErrUnknownSite) {
			respondWithError(w, http.StatusNotFound, h.invalidSiteMessage())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, data)
}

// GetAllLeaderboards serves every site keyed by site id. Per-site failures
// come back as error records inside the map, never as a failed request.
func (h *LeaderboardHandler) GetAllLeaderboards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), allSitesTimeout)
	defer cancel()

	respondWithJSON(w, http.StatusOK, h.leaderboardService.ResolveAll(ctx))
}

// RefreshLeaderboard drops the cached snapshot and fetches live.
func (h *LeaderboardHandler) RefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), singleSiteTimeout)
	defer cancel()

	siteID := mux.Vars(r)["siteID"]

	data, err := h.leaderboardService.ForceRefresh(ctx, siteID)
	if err != nil {
		if errors.Is(err, services.ErrUnknownSite) {
			respondWithError(w, http.StatusNotFound, h.invalidSiteMessage())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Refreshed %s leaderboard", siteID),
		"data":    data,
	})
}

func (h *LeaderboardHandler) invalidSiteMessage() string {
	return fmt.Sprintf("Invalid site. Valid sites: %s",
		strings.Join(h.leaderboardService.ValidSiteIDs(), ", "))
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
