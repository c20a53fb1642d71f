package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/internal/training/program"
	"github.com/swinglab/swinglab-backend/pkg"
)

type programStateGetter interface {
	Get(ctx context.Context, playerID string) (*program.State, error)
}

type Handler struct {
	programService programStateGetter
	now            func() time.Time
}

func NewHandler(programService programStateGetter) *Handler {
	return &Handler{
		programService: programService,
		now:            time.Now,
	}
}

func (h *Handler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.get")
	defer span.End()

	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "player id is empty", http.StatusBadRequest)
		return
	}

	state, err := h.programService.Get(ctx, playerID)
	if errors.Is(err, program.ErrStateNotFound) {
		http.Error(w, "program state not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get program state for schedule of %s: %s", playerID, err)
		http.Error(w, "get schedule failed", http.StatusInternalServerError)
		return
	}

	horizonWeeks := DefaultHorizonWeeks
	if weeksParam := r.URL.Query().Get("weeks"); weeksParam != "" {
		weeks, err := strconv.Atoi(weeksParam)
		if err != nil || weeks <= 0 {
			http.Error(w, "invalid weeks param", http.StatusBadRequest)
			return
		}
		horizonWeeks = weeks
	}

	calendar := Project(Config{
		TrainingDays:    state.Settings.TrainingDays,
		SessionsPerWeek: state.Settings.SessionsPerWeek,
		SessionMinutes:  state.Settings.SessionMinutes,
		InSeason:        state.Settings.InSeason,
		GameDays:        state.Settings.GameDays,
		StartDate:       h.now(),
		HorizonWeeks:    horizonWeeks,
	}, state.CurrentPhase)

	calendarJson, err := json.Marshal(calendar)
	if err != nil {
		log.Errorf("failed to marshal schedule: %s", err)
		http.Error(w, "marshal schedule failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, calendarJson, http.StatusOK)
}
