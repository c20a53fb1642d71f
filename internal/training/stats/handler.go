package stats

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/pkg"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) HandleGetPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.getPlayerStats")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	playerStats, err := h.service.GetPlayerStats(ctx, playerID)
	if err != nil {
		log.Errorf("get player stats for %s: %s", playerID, err)
		http.Error(w, "get player stats failed", http.StatusInternalServerError)
		return
	}

	statsJson, err := json.Marshal(playerStats)
	if err != nil {
		log.Errorf("failed to marshal player stats: %s", err)
		http.Error(w, "marshal player stats failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statsJson, http.StatusOK)
}
