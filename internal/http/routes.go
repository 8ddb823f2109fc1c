package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/http/dto"
	"github.com/cesargomez89/iptvcatalog/internal/source"
)

func (h *Handler) CategoriesPage(w http.ResponseWriter, r *http.Request) {
	q, errs := dto.ParseCategoriesQuery(r.URL.Query())
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	page, err := h.Query.CategoriesPage(r.Context(), q.StreamType, q.Page, q.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, page)
}

func (h *Handler) StreamsPage(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	q, errs := dto.ParsePageQuery(r.URL.Query())
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	page, err := h.Query.StreamsPageByCategory(r.Context(), categoryID, q.Page, q.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, page)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, errs := dto.ParseSearchQuery(r.URL.Query())
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	streams, err := h.Query.SearchStreams(r.Context(), q.Query, q.StreamType, q.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, map[string]interface{}{
		"streams": streams,
	})
}

func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	req, errs := dto.ParseImportRequest(r.URL.Query())
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	run, err := h.ImportService.Enqueue(r.Context(), req.Force)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.Worker != nil {
		h.Worker.Notify()
	}
	h.writeJSON(w, constants.StatusAccepted, map[string]*domain.ImportRun{"run": run})
}

func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	run, err := h.ImportService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, map[string]*domain.ImportRun{"run": run})
}

func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ImportService.ListRuns(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*domain.ImportRun{}
	}
	h.writeJSON(w, constants.StatusOK, map[string][]*domain.ImportRun{"runs": runs})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.ImportService.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, st)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	creds, err := h.ImportService.Credentials(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, constants.StatusOK, dto.SettingsResponse{
		PlaylistURL: creds.URL,
		Username:    creds.Username,
		HasPassword: creds.Password != "",
	})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.SettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.writeValidation(w, []dto.ValidationError{{Field: "body", Message: "must be a JSON object"}})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	creds := source.Credentials{URL: req.PlaylistURL, Username: req.Username, Password: req.Password}
	if err := h.ImportService.SaveCredentials(r.Context(), creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("Playlist settings updated", "url", req.PlaylistURL, "username", req.Username)
	h.GetSettings(w, r)
}
