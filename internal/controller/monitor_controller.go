package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"HeliumRecovery.monitor/internal/agent"
	"HeliumRecovery.monitor/internal/dataset"
	"HeliumRecovery.monitor/internal/middleware"
	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/repository"
	"HeliumRecovery.monitor/internal/session"
	"HeliumRecovery.monitor/internal/source"
	"HeliumRecovery.monitor/internal/thermo"
	"HeliumRecovery.monitor/internal/utils"
)

const maxBodyBytes = 4 << 20

// ConsumptionQuerier reads aggregated consumption from the time-series store.
type ConsumptionQuerier interface {
	QueryConsumption(ctx context.Context, query models.ConsumptionQuery) ([]models.DataPoint, error)
}

// MonitorController handles HTTP requests for the vessel monitor.
type MonitorController struct {
	session  *session.Session
	commands *agent.Registry
	history  ConsumptionQuerier
}

// NewMonitorController creates a new MonitorController. history may be nil.
func NewMonitorController(s *session.Session, commands *agent.Registry, history ConsumptionQuerier) *MonitorController {
	return &MonitorController{session: s, commands: commands, history: history}
}

// HandleHealth reports liveness.
func (c *MonitorController) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetReadings returns the readings of a time window.
func (c *MonitorController) HandleGetReadings(w http.ResponseWriter, r *http.Request) {
	window, err := dataset.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, err.Error(), nil, http.StatusBadRequest))
		return
	}
	readings, err := c.session.View(r.Context(), window)
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, readings)
}

// HandleEditReadings applies an edited view.
func (c *MonitorController) HandleEditReadings(w http.ResponseWriter, r *http.Request) {
	var edits []models.ReadingEdit
	if apiErr, ok := decodeBody(r, &edits); !ok {
		utils.RespondWithError(w, apiErr)
		return
	}
	log.Printf("%s submitted %d edited reading(s)", middleware.Subject(r), len(edits))

	out, err := c.session.SubmitEdits(r.Context(), edits)
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// HandleAppendReadings adds new readings.
func (c *MonitorController) HandleAppendReadings(w http.ResponseWriter, r *http.Request) {
	var raws []models.RawReading
	if apiErr, ok := decodeBody(r, &raws); !ok {
		utils.RespondWithError(w, apiErr)
		return
	}
	if len(raws) == 0 {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "at least one reading is required", nil, http.StatusBadRequest))
		return
	}

	out, err := c.session.Append(r.Context(), raws)
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, out)
}

// HandleReload refetches the feed and rebuilds the dataset.
func (c *MonitorController) HandleReload(w http.ResponseWriter, r *http.Request) {
	log.Printf("%s requested a reload", middleware.Subject(r))
	out, err := c.session.Reload(r.Context())
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// HandleExport downloads the corrected report as CSV.
func (c *MonitorController) HandleExport(w http.ResponseWriter, r *http.Request) {
	if _, err := c.session.Load(r.Context()); err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dataset.ExportFilename))
	if err := c.session.ExportCSV(r.Context(), w); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

// HandleKPI returns the headline figures of the newest reading in a window.
func (c *MonitorController) HandleKPI(w http.ResponseWriter, r *http.Request) {
	window, err := dataset.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, err.Error(), nil, http.StatusBadRequest))
		return
	}
	kpi, ok, err := c.session.KPI(r.Context(), window)
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	if !ok {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound, "no readings in the selected window", nil, http.StatusNotFound))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, kpi)
}

// HandleConsumption returns consumption summed per window from the time-series store.
func (c *MonitorController) HandleConsumption(w http.ResponseWriter, r *http.Request) {
	if c.history == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeServiceUnavailable, "time-series store is not configured", nil, http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	req := models.ConsumptionQuery{WindowPeriod: time.Hour}
	var err error
	if req.Start, err = time.Parse(time.RFC3339, query.Get("start")); err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "start must be an RFC3339 timestamp", nil, http.StatusBadRequest))
		return
	}
	if req.Stop, err = time.Parse(time.RFC3339, query.Get("stop")); err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "stop must be an RFC3339 timestamp", nil, http.StatusBadRequest))
		return
	}
	if !req.Stop.After(req.Start) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeValidationFailed, "stop must be after start", nil, http.StatusBadRequest))
		return
	}
	if p := query.Get("window_period"); p != "" {
		if req.WindowPeriod, err = time.ParseDuration(p); err != nil || req.WindowPeriod <= 0 {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "window_period must be a positive duration such as 1h", nil, http.StatusBadRequest))
			return
		}
	}

	points, err := c.history.QueryConsumption(r.Context(), req)
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInternalServerError, fmt.Sprintf("error querying consumption: %v", err), nil, http.StatusInternalServerError))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.ConsumptionResponse{
		Field:        repository.ConsumptionField,
		WindowPeriod: req.WindowPeriod.String(),
		Points:       points,
	})
}

// HandleListCommands lists the assistant commands.
func (c *MonitorController) HandleListCommands(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string][]string{"commands": c.commands.Names()})
}

// HandleExecuteCommand runs one assistant command.
func (c *MonitorController) HandleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeBadRequest, fmt.Sprintf("error reading request body: %v", err), nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	out, err := c.commands.Execute(r.Context(), name, json.RawMessage(body))
	if err != nil {
		utils.RespondWithError(w, apiErrorFor(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func decodeBody(r *http.Request, v any) (models.APIError, bool) {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return models.NewAPIError(models.ErrorCodeBadRequest, fmt.Sprintf("error unmarshalling JSON: %v", err), nil, http.StatusBadRequest), false
	}
	return models.APIError{}, true
}

// apiErrorFor maps domain errors to API errors.
func apiErrorFor(err error) models.APIError {
	switch {
	case errors.Is(err, source.ErrSourceUnavailable), errors.Is(err, source.ErrMalformedFeed):
		return models.NewAPIError(models.ErrorCodeSourceUnavailable, err.Error(), nil, http.StatusBadGateway)
	case errors.Is(err, session.ErrNotLoaded):
		return models.NewAPIError(models.ErrorCodeDatasetNotLoaded, err.Error(), nil, http.StatusServiceUnavailable)
	case errors.Is(err, dataset.ErrUnknownReading):
		return models.NewAPIError(models.ErrorCodeUnknownReading, err.Error(), nil, http.StatusConflict)
	case errors.Is(err, dataset.ErrDuplicateReading):
		return models.NewAPIError(models.ErrorCodeDuplicateReading, err.Error(), nil, http.StatusConflict)
	case errors.Is(err, dataset.ErrInvalidEdit), errors.Is(err, agent.ErrInvalidInput):
		return models.NewAPIError(models.ErrorCodeValidationFailed, err.Error(), nil, http.StatusBadRequest)
	case errors.Is(err, dataset.ErrUnknownMetric):
		return models.NewAPIError(models.ErrorCodeValidationFailed, err.Error(), map[string][]string{"metrics": dataset.MetricNames()}, http.StatusBadRequest)
	case errors.Is(err, agent.ErrUnknownCommand):
		return models.NewAPIError(models.ErrorCodeUnknownCommand, err.Error(), nil, http.StatusNotFound)
	case errors.Is(err, thermo.ErrDegenerateCompressibility), errors.Is(err, thermo.ErrNonFiniteResult):
		return models.NewAPIError(models.ErrorCodeDegenerateInput, err.Error(), nil, http.StatusUnprocessableEntity)
	default:
		log.Printf("Unhandled error: %v", err)
		return models.NewAPIError(models.ErrorCodeInternalServerError, "internal server error", nil, http.StatusInternalServerError)
	}
}
