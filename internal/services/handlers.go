package services

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/lib/geography"
	"github.com/dpup/transit.paths/server/internal/lib/path"
)

const (
	PathsPrefix = "/api/v1/paths/"
	LinesPrefix = "/api/v1/lines/"
)

// Handler exposes the path service over HTTP:
//
//	GET  /api/v1/paths/{id}                            path feature
//	GET  /api/v1/paths/{id}/nodes                      nodes and waypoints
//	GET  /api/v1/paths/{id}/segment?start=0&end=1      segment feature
//	GET  /api/v1/paths/{id}/kml                        KML document
//	POST /api/v1/paths/{id}/recompute                  recompute geography
//	POST /api/v1/lines/{id}/recompute                  recompute every path of a line
type Handler struct {
	service *PathService
}

// NewHandler creates a new HTTP handler for the path service
func NewHandler(service *PathService) *Handler {
	return &Handler{service: service}
}

type recomputeResponse struct {
	Status          geography.Status      `json:"status"`
	GeographyErrors *path.GeographyErrors `json:"geography_errors,omitempty"`
	Error           string                `json:"error,omitempty"`
	Path            json.RawMessage       `json:"path"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServePaths handles requests under PathsPrefix
func (h *Handler) ServePaths(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, PathsPrefix)
	if len(parts) == 0 || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getPath(w, r, id)
	case action == "nodes" && r.Method == http.MethodGet:
		h.getNodes(w, r, id)
	case action == "segment" && r.Method == http.MethodGet:
		h.getSegment(w, r, id)
	case action == "kml" && r.Method == http.MethodGet:
		h.getKML(w, r, id)
	case action == "recompute" && r.Method == http.MethodPost:
		h.recomputePath(w, r, id)
	case action == "" || action == "nodes" || action == "segment" || action == "kml" || action == "recompute":
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	default:
		http.NotFound(w, r)
	}
}

// ServeLines handles requests under LinesPrefix
func (h *Handler) ServeLines(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, LinesPrefix)
	if len(parts) != 2 || parts[1] != "recompute" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	results, err := h.service.RecomputeLine(r.Context(), parts[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "application/json", map[string]interface{}{
		"line_id": parts[0],
		"paths":   results,
	})
}

func (h *Handler) getPath(w http.ResponseWriter, r *http.Request, id string) {
	feature, err := h.service.PathFeature(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "application/geo+json", feature)
}

func (h *Handler) getNodes(w http.ResponseWriter, r *http.Request, id string) {
	fc, err := h.service.NodesAndWaypoints(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "application/geo+json", fc)
}

func (h *Handler) getSegment(w http.ResponseWriter, r *http.Request, id string) {
	query := r.URL.Query()
	start, err := strconv.Atoi(query.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidArgument", "start must be an integer")
		return
	}
	end, err := strconv.Atoi(query.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidArgument", "end must be an integer")
		return
	}

	feature, err := h.service.SegmentGeojson(r.Context(), id, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "application/geo+json", feature)
}

func (h *Handler) getKML(w http.ResponseWriter, r *http.Request, id string) {
	var buf bytes.Buffer
	if err := h.service.ExportKML(r.Context(), id, &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.kml"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write KML response", "error", err)
	}
}

func (h *Handler) recomputePath(w http.ResponseWriter, r *http.Request, id string) {
	p, result, err := h.service.Recompute(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	feature, err := p.ToFeature()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	featureJSON, err := feature.MarshalJSON()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := recomputeResponse{
		Status:          result.Status,
		GeographyErrors: result.GeographyErrors,
		Path:            featureJSON,
	}
	if result.Err != nil {
		response.Error = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, "application/json", response)
}

func splitPath(urlPath, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(urlPath, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// writeServiceError maps path errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, path.ErrPathNotFound), errors.Is(err, path.ErrLineNotFound), errors.Is(err, path.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrLineFrozen):
		status = http.StatusConflict
	case errors.Is(err, path.ErrPathNoGeography), errors.Is(err, path.ErrPathInvalidSegmentIndex):
		status = http.StatusBadRequest
	}

	code := "Internal"
	var pathErr *path.Error
	if errors.As(err, &pathErr) {
		code = pathErr.Code
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, "application/json", errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
