package allocation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Ashwinth04/FinHub/internal/domain"
	"github.com/Ashwinth04/FinHub/internal/modules/inference"
)

// Handler handles allocation HTTP requests.
type Handler struct {
	service *Service
	adapter *inference.Adapter
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler.
func NewHandler(service *Service, adapter *inference.Adapter, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		adapter: adapter,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// RegisterRoutes mounts the allocation API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/universe", h.HandleGetUniverse)
	r.Put("/universe", h.HandleSetUniverse)
	r.Post("/train", h.HandleTrain)
	r.Get("/train/status", h.HandleTrainStatus)
	r.Post("/predict", h.HandlePredict)
}

// HandleSetUniverse replaces the ticker universe and drops any trained
// model, since its indices refer to the old ordering.
func (h *Handler) HandleSetUniverse(w http.ResponseWriter, r *http.Request) {
	var req UniverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var tickers []string
	for _, t := range req.Tickers {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tickers = append(tickers, trimmed)
		}
	}
	if len(tickers) == 0 {
		h.writeError(w, http.StatusBadRequest, "At least one ticker is required")
		return
	}

	stored, err := h.service.SetUniverse(tickers)
	if err != nil {
		if errors.Is(err, domain.ErrTrainingInProgress) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickers": stored,
		"count":   len(stored),
	})
}

// HandleGetUniverse returns the stored universe in canonical order.
func (h *Handler) HandleGetUniverse(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.GetUniverse()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickers": tickers,
		"count":   len(tickers),
	})
}

// HandleTrain launches a background training run over the stored universe.
func (h *Handler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	err := h.service.StartTraining(TrainOptions{
		Epochs:       req.Epochs,
		Patience:     req.Patience,
		TrainSamples: req.TrainSamples,
		ValSamples:   req.ValSamples,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTrainingInProgress) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "training started",
	})
}

// HandleTrainStatus reports the model slot state and the latest run.
func (h *Handler) HandleTrainStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Status())
}

// HandlePredict runs inference over the requested ticker subset.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pred, err := h.adapter.Predict(req.Tickers, req.Strategy, req.RiskTolerance)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrModelNotTrained):
			h.writeError(w, http.StatusConflict, "Model not trained yet. Please train the model first.")
		case errors.Is(err, domain.ErrUnknownTicker):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, pred)
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
