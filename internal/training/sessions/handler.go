package sessions

import (
	"encoding/json"
	"errors"
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

type startSessionRequest struct {
	PlayerID   string `json:"playerId"`
	ProtocolID string `json:"protocolId"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.start")
	defer span.End()

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start session, unmarshal json params: %s", err)
		http.Error(w, "start session failed", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.ProtocolID == "" {
		http.Error(w, "player id and protocol id are required", http.StatusBadRequest)
		return
	}

	session, err := h.service.Start(ctx, req.PlayerID, req.ProtocolID)
	if errors.Is(err, ErrProtocolNotFound) {
		http.Error(w, "protocol not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("start session: %s", err)
		http.Error(w, "start session failed", http.StatusInternalServerError)
		return
	}

	writeSession(w, session, http.StatusCreated)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	session, err := h.service.Get(ctx, mux.Vars(r)["id"])
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get session: %s", err)
		http.Error(w, "get session failed", http.StatusInternalServerError)
		return
	}

	writeSession(w, session, http.StatusOK)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.complete")
	defer span.End()

	session, err := h.service.Complete(ctx, mux.Vars(r)["id"])
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("complete session: %s", err)
		http.Error(w, "complete session failed", http.StatusInternalServerError)
		return
	}

	writeSession(w, session, http.StatusOK)
}

func writeSession(w http.ResponseWriter, session *Session, statusCode int) {
	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal session: %s", err)
		http.Error(w, "marshal session failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, statusCode)
}
