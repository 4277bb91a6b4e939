package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"fairprice/internal/app"
	"fairprice/internal/domain"
)

type Handlers struct{ Svc *app.AnalysisService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/estimates", h.createEstimate)
}

type estimateRequest struct {
	TotalArea  float64 `json:"total_area"`
	LivingArea float64 `json:"living_area"`
	Rooms      int     `json:"rooms"`
	ListPrice  float64 `json:"list_price"`
	Region     string  `json:"region"`
	District   string  `json:"district"`
	BuildYear  int     `json:"build_year"`
	Floor      int     `json:"floor"`
	Floors     int     `json:"floors"`
	Elevators  int     `json:"elevators"`
	Windows    string  `json:"windows"`
	Renovated  bool    `json:"renovated"`
	PhotoCount int     `json:"photo_count"`
	MinAnalogs int     `json:"min_analogs"`
}

type estimateResponse struct {
	Scenario        domain.PriceScenario    `json:"scenario"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	AnalogCount     int                     `json:"analog_count"`
	Rung            string                  `json:"rung"`
	Degraded        bool                    `json:"degraded"`
	Quality         float64                 `json:"quality"`
	OutliersRemoved int                     `json:"outliers_removed"`
}

func (h *Handlers) createEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	subject := domain.SubjectProperty{
		TotalArea:  req.TotalArea,
		LivingArea: req.LivingArea,
		Rooms:      req.Rooms,
		ListPrice:  req.ListPrice,
		Region:     req.Region,
		District:   req.District,
		BuildYear:  req.BuildYear,
		Floor:      req.Floor,
		Floors:     req.Floors,
		Elevators:  req.Elevators,
		Windows:    domain.WindowType(req.Windows),
		Renovated:  req.Renovated,
		PhotoCount: req.PhotoCount,
	}
	key := r.Header.Get("Idempotency-Key")

	analysis, err := h.Svc.Analyze(r.Context(), subject, req.MinAnalogs, key)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		case errors.Is(err, domain.ErrNoAnalogs):
			writeProblem(w, http.StatusNotFound, "No Analogs", "no comparable listings found, even region-wide")
		case errors.Is(err, domain.ErrPoolExhausted):
			writeProblem(w, http.StatusServiceUnavailable, "Busy", "no browser session available, retry later")
		default:
			log.Error().Err(err).Msg("estimate failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	resp := estimateResponse{
		Scenario:        analysis.Scenario,
		Recommendations: analysis.Recommendations,
		AnalogCount:     analysis.Analogs.Count(),
		Rung:            analysis.Analogs.Rung,
		Degraded:        analysis.Analogs.Degraded,
		Quality:         analysis.Stats.Quality,
		OutliersRemoved: len(analysis.Stats.OutlierIdx),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write estimate response")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}
