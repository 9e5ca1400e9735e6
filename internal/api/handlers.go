package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/scan"
	"github.com/starford/dagaz/internal/store"
)

const maxUploadBytes = 50 << 20 // 50 MB

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".heic": true,
}

// StatsSource exposes per-provider OCR aggregates; the orchestrator
// implements it.
type StatsSource interface {
	Stats() []ocr.ProviderStats
}

// Handler holds API route handlers.
type Handler struct {
	svc    *scan.Service
	stats  StatsSource
	images imagestore.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *scan.Service, stats StatsSource, images imagestore.Store) *Handler {
	return &Handler{svc: svc, stats: stats, images: images}
}

// Scan handles POST /api/scan (multipart/form-data, field "file").
// Optional form fields: provider, max_tier, prefer.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported image type: "+ext))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	stored, err := h.images.SaveUpload(header.Filename, data)
	if err != nil {
		slog.Error("scan upload save failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to store upload"))
		return
	}

	opts, err := scanOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.svc.ScanImage(r.Context(), stored, opts)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoProviders):
			writeJSON(w, http.StatusServiceUnavailable, errorBody("no OCR providers available"))
		case errors.Is(err, apperr.ErrAllProvidersFailed):
			slog.Error("scan failed on all providers", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("all OCR providers failed"))
		default:
			slog.Error("scan failed", slog.String("image", stored), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, ScanResponse{
		Text:       res.Text,
		Provider:   res.Provider,
		Confidence: res.Confidence,
		Entries:    nonNilEntries(res.Entries),
	})
}

// Parse handles POST /api/parse.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	entries, err := h.svc.ParseText(r.Context(), req.Text)
	if err != nil {
		slog.Error("parse failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, EntryListResponse{
		Entries: nonNilEntries(entries),
		Total:   len(entries),
	})
}

// ListEntries handles GET /api/entries with date/type/status filters.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := store.Filter{
		Date:   q.Get("date"),
		Limit:  limit,
		Offset: offset,
	}
	if t := q.Get("type"); t != "" {
		if !models.ValidType(models.EntryType(t)) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid type: "+t))
			return
		}
		f.Type = models.EntryType(t)
	}
	if s := q.Get("status"); s != "" {
		if !models.ValidStatus(models.EntryStatus(s)) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid status: "+s))
			return
		}
		f.Status = models.EntryStatus(s)
	}

	entries, total, err := h.svc.ListEntries(r.Context(), f)
	if err != nil {
		slog.Error("list entries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{
		Entries: nonNilEntries(entries),
		Total:   total,
	})
}

// GetEntry handles GET /api/entries/{id}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get entry failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/entries/{id}.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete entry failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OCRHealth handles GET /api/ocr/health.
func (h *Handler) OCRHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Stats()
	providers := make([]ProviderHealth, len(stats))
	allHealthy := true
	for i, s := range stats {
		providers[i] = ProviderHealth{Provider: s.ID, Healthy: s.Healthy}
		if !s.Healthy {
			allHealthy = false
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":   allHealthy,
		"providers": providers,
	})
}

// OCRStats handles GET /api/ocr/stats.
func (h *Handler) OCRStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Stats()
	out := make([]ProviderStatsDTO, len(stats))
	for i, s := range stats {
		out[i] = ProviderStatsDTO{
			Provider:      s.ID,
			Attempts:      s.Attempts,
			SuccessRate:   s.SuccessRate,
			AvgLatencyMS:  s.AvgLatency.Milliseconds(),
			AvgConfidence: s.AvgConfidence,
			Healthy:       s.Healthy,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// scanOptions builds ocr.Options from form fields, rejecting unknown values.
func scanOptions(r *http.Request) (ocr.Options, error) {
	opts := ocr.Options{Preferred: r.FormValue("provider")}

	if tier := r.FormValue("max_tier"); tier != "" {
		t, err := ocr.ParseTier(tier)
		if err != nil {
			return ocr.Options{}, err
		}
		opts.MaxTier = t
	}
	switch p := ocr.Preference(r.FormValue("prefer")); p {
	case "", ocr.PreferSpeed, ocr.PreferAccuracy:
		opts.Prefer = p
	default:
		return ocr.Options{}, errors.New("prefer must be 'speed' or 'accuracy'")
	}
	return opts, nil
}

func nonNilEntries(entries []models.Entry) []models.Entry {
	if entries == nil {
		return []models.Entry{}
	}
	return entries
}
