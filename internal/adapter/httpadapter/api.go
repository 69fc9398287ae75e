package httpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/report"
)

const maxBodyBytes = 1 << 20

// Assessor runs assessments and weather updates.
type Assessor interface {
	Assess(ctx context.Context, lat, lng float64, kind domain.ProviderKind) domain.RiskAssessment
	Update(ctx context.Context, lat, lng float64, kind domain.ProviderKind) domain.WeatherReport
}

// LatestReader returns the most recently cached weather report.
type LatestReader interface {
	Latest(ctx context.Context) (domain.WeatherReport, bool, error)
}

// NearbyFinder returns community reports near a coordinate.
type NearbyFinder interface {
	NearbyReports(ctx context.Context, lat, lng, radiusKm float64) []domain.UserReport
}

// API serves the /api/v1 routes.
type API struct {
	assessor      Assessor
	latest        LatestReader
	writer        domain.ReportWriter
	nearby        NearbyFinder
	defaultRadius float64
	logger        *slog.Logger
}

// NewAPI wires the REST handlers. defaultRadius applies to nearby-report
// queries without radius_km.
func NewAPI(assessor Assessor, latest LatestReader, writer domain.ReportWriter, nearby NearbyFinder, defaultRadius float64, logger *slog.Logger) *API {
	return &API{
		assessor:      assessor,
		latest:        latest,
		writer:        writer,
		nearby:        nearby,
		defaultRadius: defaultRadius,
		logger:        logger,
	}
}

// apiPrefix roots every API route. Routes are registered with full paths on
// the root router so a method mismatch answers 405 instead of 404.
const apiPrefix = "/api/v1"

// Register mounts the API routes on r.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc(apiPrefix+"/assessment", a.handleAssess).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/weather/update", a.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/weather/latest", a.handleLatest).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/reports", a.handleSubmit(domain.CollectionUserReports)).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/reports/nearby", a.handleNearby).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/map-marks", a.handleSubmit(domain.CollectionMapLocations)).Methods(http.MethodPost)
}

func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := coordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, _ := domain.ParseProviderKind(r.URL.Query().Get("provider"))
	sharedobs.WriteJSON(w, http.StatusOK, a.assessor.Assess(r.Context(), lat, lng, kind))
}

func (a *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	req, err := domain.ParseLocationRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.assessor.Update(r.Context(), req.Lat, req.Lng, req.Provider))
}

func (a *API) handleLatest(w http.ResponseWriter, r *http.Request) {
	report, ok, err := a.latest.Latest(r.Context())
	if err != nil {
		a.logger.Error("read latest weather report", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("weather cache unavailable"))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no weather report has been recorded yet"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (a *API) handleNearby(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := coordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	radius := a.defaultRadius
	if s := r.URL.Query().Get("radius_km"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("radius_km must be a positive number"))
			return
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.nearby.NearbyReports(r.Context(), lat, lng, radius))
}

func (a *API) handleSubmit(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		rep, err := report.Submit(r.Context(), a.writer, collection, body)
		switch {
		case errors.Is(err, domain.ErrInvalidReport):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			a.logger.Error("store report", "collection", collection, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("report store unavailable"))
		default:
			a.logger.Info("report submitted", "collection", collection,
				"status", rep.Status, "severity", rep.Severity)
			sharedobs.WriteJSON(w, http.StatusCreated, rep)
		}
	}
}

func coordinates(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return 0, 0, errors.New("lat query parameter must be a number")
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return 0, 0, errors.New("lng query parameter must be a number")
	}
	if err := domain.ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
