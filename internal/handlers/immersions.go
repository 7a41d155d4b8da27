package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/storage"
)

// ImmersionSummary is one entry of the immersion listing.
type ImmersionSummary struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
}

// ImmersionResponse is an immersion resolved for a language, plus the
// configuration problems found while building it.
type ImmersionResponse struct {
	*immersion.Immersion
	Warnings []string `json:"warnings,omitempty"`
}

type ImmersionHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewImmersionHandler(log *slog.Logger, storage storage.Storage) *ImmersionHandler {
	return &ImmersionHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP handles immersion reads
// Routes:
// GET /v1/immersions               - List immersions
// GET /v1/immersions/{file}?lang=  - Read one immersion resolved for a language
func (h *ImmersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/immersions"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, filename)
}

func (h *ImmersionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.storage.ListImmersions(r.Context())
	if err != nil {
		h.log.Error("Failed to list immersions", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list immersions")
		return
	}

	summaries := make([]ImmersionSummary, 0, len(list))
	for name, file := range list {
		summaries = append(summaries, ImmersionSummary{Name: name, FileName: file})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].FileName < summaries[j].FileName
	})

	writeJSON(w, h.log, http.StatusOK, summaries)
}

func (h *ImmersionHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
		return
	}

	desc, err := h.storage.GetImmersion(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrImmersionNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Immersion not found")
			return
		}
		h.log.Error("Failed to get immersion", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve immersion")
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "en"
	}
	im, errs := desc.Build(lang)
	resp := ImmersionResponse{Immersion: im}
	for _, e := range errs {
		resp.Warnings = append(resp.Warnings, e.Error())
	}

	writeJSON(w, h.log, http.StatusOK, resp)
}
