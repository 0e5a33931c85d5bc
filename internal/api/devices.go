package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultHistoryWindow is used when a history request has no since
// parameter.
const defaultHistoryWindow = 24 * time.Hour

// handleListDevices returns all known devices.
//
// Query parameters:
//   - status: filter by connection status (Online, Offline)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.registry.ListDevices()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if d.ConnectionStatus == status {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by DSN.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(chi.URLParam(r, "dsn"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleListProperties returns the last known properties of a device.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.registry.ListProperties(chi.URLParam(r, "dsn"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": props, "count": len(props)})
}

// handleGetProperty returns one property.
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	prop, err := s.registry.GetProperty(chi.URLParam(r, "dsn"), chi.URLParam(r, "name"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// createDatapointRequest is the body of POST .../datapoints.
type createDatapointRequest struct {
	Value any `json:"value"`
}

// handleCreateDatapoint sets a property through the bridge. For
// ack-enabled properties the request waits for the device to acknowledge.
func (s *Server) handleCreateDatapoint(w http.ResponseWriter, r *http.Request) {
	var req createDatapointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	dsn, name := chi.URLParam(r, "dsn"), chi.URLParam(r, "name")
	dp, err := s.bridge.SetProperty(r.Context(), dsn, name, req.Value)
	if err != nil {
		s.logger.Warn("setting property failed",
			"dsn", dsn,
			"property", name,
			"subject", r.Context().Value(ctxKeySubject),
			"error", err,
		)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dp)
}

// handlePropertyHistory returns recorded values of a property.
//
// Query parameters:
//   - since: RFC 3339 start time (default 24h ago)
//   - limit: maximum rows (default 1000)
func (s *Server) handlePropertyHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is not enabled")
		return
	}

	since := time.Now().Add(-defaultHistoryWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 time")
			return
		}
		since = t
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	dsn, name := chi.URLParam(r, "dsn"), chi.URLParam(r, "name")
	if _, err := s.registry.GetProperty(dsn, name); err != nil {
		writeUpstreamError(w, err)
		return
	}
	points, err := s.history.PropertyHistory(r.Context(), dsn, name, since, limit)
	if err != nil {
		s.logger.Warn("history query failed", "dsn", dsn, "property", name, "error", err)
		writeUnavailable(w, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points, "count": len(points)})
}
