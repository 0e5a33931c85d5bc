package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/rules"
)

// handleListRules returns every rule on the account.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	if s.rules == nil {
		writeUnavailable(w, "rules are not enabled")
		return
	}
	list, err := s.rules.FetchRules(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": list, "count": len(list)})
}

// handleListDeviceRules returns the rules whose expression names a device.
func (s *Server) handleListDeviceRules(w http.ResponseWriter, r *http.Request) {
	if s.rules == nil {
		writeUnavailable(w, "rules are not enabled")
		return
	}
	dsn := chi.URLParam(r, "dsn")
	if _, err := s.registry.GetDevice(dsn); err != nil {
		writeUpstreamError(w, err)
		return
	}
	list, err := s.rules.FetchRulesForDevice(r.Context(), dsn)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": list, "count": len(list)})
}

func (s *Server) handleEnableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, true)
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, false)
}

func (s *Server) setRuleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if s.rules == nil {
		writeUnavailable(w, "rules are not enabled")
		return
	}
	id := chi.URLParam(r, "uuid")
	var (
		rule *rules.Rule
		err  error
	)
	if enabled {
		rule, err = s.rules.Enable(r.Context(), id)
	} else {
		rule, err = s.rules.Disable(r.Context(), id)
	}
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	s.logger.Info("rule updated", "rule_uuid", id, "enabled", enabled)
	writeJSON(w, http.StatusOK, rule)
}
