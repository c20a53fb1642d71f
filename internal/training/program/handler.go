package program

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

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

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.get")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	state, err := h.service.Get(ctx, playerID)
	if errors.Is(err, ErrStateNotFound) {
		http.Error(w, "program state not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get program state for %s: %s", playerID, err)
		http.Error(w, "get program state failed", http.StatusInternalServerError)
		return
	}

	writeState(w, state, http.StatusOK)
}

type resetRequest struct {
	ProgramStartDate string    `json:"programStartDate"`
	Settings         *Settings `json:"settings"`
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.reset")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("reset program, unmarshal json params: %s", err)
			http.Error(w, "reset program failed", http.StatusBadRequest)
			return
		}
	}

	params := ResetParams{Settings: req.Settings}
	if req.ProgramStartDate != "" {
		startDate, err := time.Parse(time.DateOnly, req.ProgramStartDate)
		if err != nil {
			http.Error(w, "invalid program start date", http.StatusBadRequest)
			return
		}
		params.ProgramStartDate = startDate
	}

	state, err := h.service.Reset(ctx, playerID, params)
	if err != nil {
		log.Errorf("reset program for %s: %s", playerID, err)
		http.Error(w, "reset program failed", http.StatusInternalServerError)
		return
	}

	writeState(w, state, http.StatusOK)
}

func (h *Handler) HandleRequestMaintenanceExtension(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.maintenanceextension")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	state, err := h.service.RequestMaintenanceExtension(ctx, playerID)
	if errors.Is(err, ErrStateNotFound) {
		http.Error(w, "program state not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("request maintenance extension for %s: %s", playerID, err)
		http.Error(w, "request maintenance extension failed", http.StatusInternalServerError)
		return
	}

	writeState(w, state, http.StatusOK)
}

func (h *Handler) HandleStartNextRampUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.nextrampup")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	state, err := h.service.StartNextRampUp(ctx, playerID)
	switch {
	case errors.Is(err, ErrStateNotFound):
		http.Error(w, "program state not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Errorf("start next ramp-up for %s: %s", playerID, err)
		http.Error(w, "start next ramp-up failed", http.StatusInternalServerError)
		return
	}

	writeState(w, state, http.StatusOK)
}

type settingsRequest struct {
	Settings
	ProgramStartDate string `json:"programStartDate"`
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.updatesettings")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update settings, unmarshal json params: %s", err)
		http.Error(w, "update settings failed", http.StatusBadRequest)
		return
	}

	update := SettingsUpdate{Settings: req.Settings}
	if req.ProgramStartDate != "" {
		startDate, err := time.Parse(time.DateOnly, req.ProgramStartDate)
		if err != nil {
			http.Error(w, "invalid program start date", http.StatusBadRequest)
			return
		}
		update.ProgramStartDate = &startDate
	}

	state, err := h.service.UpdateSettings(ctx, playerID, update)
	if err != nil {
		log.Errorf("update settings for %s: %s", playerID, err)
		http.Error(w, "update settings failed", http.StatusInternalServerError)
		return
	}

	writeState(w, state, http.StatusOK)
}

func writeState(w http.ResponseWriter, state *State, statusCode int) {
	stateJson, err := json.Marshal(state)
	if err != nil {
		log.Errorf("failed to marshal program state: %s", err)
		http.Error(w, "marshal program state failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, stateJson, statusCode)
}
