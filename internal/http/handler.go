package httpapp

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cesargomez89/iptvcatalog/internal/app"
	"github.com/cesargomez89/iptvcatalog/internal/catalog"
	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/http/dto"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
)

// Notifier wakes the import worker.
type Notifier interface {
	Notify()
}

type Handler struct {
	ImportService *app.ImportService
	Query         *catalog.QueryService
	Worker        Notifier
	Logger        *logger.Logger
}

func NewHandler(is *app.ImportService, q *catalog.QueryService, w Notifier, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		ImportService: is,
		Query:         q,
		Worker:        w,
		Logger:        log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.CategoriesPage)
		r.Get("/categories/{id}/streams", h.StreamsPage)
		r.Get("/search", h.Search)

		r.Post("/import", h.TriggerImport)
		r.Get("/import", h.ListImports)
		r.Get("/import/{id}", h.GetImport)
		r.Get("/status", h.Status)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})
	r.Handle("/metrics", promhttp.Handler())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", constants.MimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, constants.StatusBadRequest, errorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// writeError maps service errors onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := constants.StatusInternalError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = constants.StatusNotFound
	case errors.Is(err, domain.ErrMalformedPayload), errors.Is(err, domain.ErrUnknownIndex):
		status = constants.StatusBadRequest
	case errors.Is(err, app.ErrImportInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotReady), r.Context().Err() != nil:
		status = constants.StatusServiceUnavailable
	}

	if status == constants.StatusInternalError {
		h.Logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
