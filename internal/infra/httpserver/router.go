package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appdeep "github.com/profjobell/studio-sub000/internal/application/deepdive"
	apppodcast "github.com/profjobell/studio-sub000/internal/application/podcast"
	appreports "github.com/profjobell/studio-sub000/internal/application/reports"
	domai "github.com/profjobell/studio-sub000/internal/domain/ai"
	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/middleware"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

type Router struct {
	reportsSvc *appreports.Service
	deepSvc    *appdeep.Service
	pipeline   *apppodcast.Pipeline
	log        *logger.Logger
}

func NewRouter(reportsSvc *appreports.Service, deepSvc *appdeep.Service, pipeline *apppodcast.Pipeline, log *logger.Logger, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{reportsSvc: reportsSvc, deepSvc: deepSvc, pipeline: pipeline, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.NewRateLimiter(60, 5).Middleware)

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses", r.wrap(r.handleSubmit))
		rt.Get("/analyses", r.wrap(r.handleLatest))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDelete))
		rt.Post("/analyses/{id}/deep-dive", r.wrap(r.handleDeepDive))

		rt.Post("/teaching", r.wrap(r.handleSubmitTeaching))
		rt.Get("/teaching", r.wrap(r.handleLatestTeaching))
		rt.Get("/teaching/{id}", r.wrap(r.handleGetTeaching))
		rt.Delete("/teaching/{id}", r.wrap(r.handleDeleteTeaching))

		rt.Post("/teaching/{id}/podcast", r.wrap(r.handleGenerate))
		rt.Get("/teaching/{id}/podcast", r.wrap(r.handlePodcastStatus))
		rt.Post("/teaching/{id}/podcast/export", r.wrap(r.handleExport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts service errors to status codes in one place so handlers can
// just return them.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var ve *domain.ValidationError
		var ce *domain.CollaboratorError
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrMissingOriginalContent):
			writeError(w, http.StatusUnprocessableEntity, err)
		case errors.Is(err, domain.ErrSourceNotReady),
			errors.Is(err, domain.ErrAlreadyGenerated),
			errors.Is(err, domain.ErrAlreadyExported),
			errors.Is(err, domain.ErrNoArtifact),
			errors.Is(err, domain.ErrStageInFlight):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, err)
		case errors.As(err, &ce):
			writeError(w, http.StatusBadGateway, err)
		default:
			r.log.Error("unhandled request error", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/analyses
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		AnalysisType string `json:"analysis_type"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return domain.Validationf("body", "malformed json")
	}

	rep, err := r.reportsSvc.Submit(req.Context(), appreports.SubmitCommand{
		Title:        body.Title,
		Content:      body.Content,
		AnalysisType: body.AnalysisType,
	})
	if err != nil {
		// A collaborator failure still produced a persisted failed report;
		// surface the record alongside the error status. Quota errors keep
		// their own status code so clients can back off.
		var ce *domain.CollaboratorError
		if errors.As(err, &ce) && rep != nil && !errors.Is(err, domai.ErrQuotaExceeded) {
			return writeJSON(w, http.StatusBadGateway, rep)
		}
		return err
	}
	return writeJSON(w, http.StatusCreated, rep)
}

// GET /v1/analyses?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.reportsSvc.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.reportsSvc.Get(req.Context(), domain.ReportID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	if err := r.reportsSvc.Delete(req.Context(), domain.ReportID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/analyses/{id}/deep-dive
func (r *Router) handleDeepDive(w http.ResponseWriter, req *http.Request) error {
	out, err := r.deepSvc.Request(req.Context(), domain.ReportID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, out)
}

// POST /v1/teaching
func (r *Router) handleSubmitTeaching(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		Recipient    string `json:"recipient"`
		Tone         string `json:"tone"`
		OutputFormat string `json:"output_format"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return domain.Validationf("body", "malformed json")
	}

	rep, err := r.reportsSvc.SubmitTeaching(req.Context(), appreports.SubmitTeachingCommand{
		Title:        body.Title,
		Content:      body.Content,
		Recipient:    body.Recipient,
		Tone:         body.Tone,
		OutputFormat: body.OutputFormat,
	})
	if err != nil {
		var ce *domain.CollaboratorError
		if errors.As(err, &ce) && rep != nil && !errors.Is(err, domai.ErrQuotaExceeded) {
			return writeJSON(w, http.StatusBadGateway, rep)
		}
		return err
	}
	return writeJSON(w, http.StatusCreated, rep)
}

// GET /v1/teaching?limit=20
func (r *Router) handleLatestTeaching(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.reportsSvc.LatestTeaching(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/teaching/{id}
func (r *Router) handleGetTeaching(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.reportsSvc.GetTeaching(req.Context(), domain.ReportID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// DELETE /v1/teaching/{id}
func (r *Router) handleDeleteTeaching(w http.ResponseWriter, req *http.Request) error {
	if err := r.reportsSvc.DeleteTeaching(req.Context(), domain.ReportID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/teaching/{id}/podcast
// Body: {"content_scope": ["Full Report"], "treatment": "general_overview"}
func (r *Router) handleGenerate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ContentScope []string `json:"content_scope"`
		Treatment    string   `json:"treatment"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return domain.Validationf("body", "malformed json")
	}

	scope := make([]domain.PodcastSection, 0, len(body.ContentScope))
	for _, s := range body.ContentScope {
		scope = append(scope, domain.PodcastSection(s))
	}
	treatment := domain.PodcastTreatment(body.Treatment)
	if treatment == "" {
		treatment = domain.TreatmentGeneralOverview
	}

	pc, err := r.pipeline.Generate(req.Context(), domain.ReportID(chi.URLParam(req, "id")), scope, treatment)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, pc)
}

// GET /v1/teaching/{id}/podcast
func (r *Router) handlePodcastStatus(w http.ResponseWriter, req *http.Request) error {
	pc, err := r.pipeline.Status(req.Context(), domain.ReportID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, pc)
}

// POST /v1/teaching/{id}/podcast/export
// Body: {"options": ["email"], "email": "user@example.com"}
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Options []string `json:"options"`
		Email   string   `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return domain.Validationf("body", "malformed json")
	}

	options := make([]domain.ExportTarget, 0, len(body.Options))
	for _, o := range body.Options {
		options = append(options, domain.ExportTarget(o))
	}

	pc, err := r.pipeline.Export(req.Context(), domain.ReportID(chi.URLParam(req, "id")), options, body.Email)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, pc)
}
