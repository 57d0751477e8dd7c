package server

import (
	"net/http"

	"github.com/tanpawarit/sparkpath-gateway/agent/agents/labs"
)

type daySimulationRequest struct {
	Role      string `json:"role"`
	FitReason string `json:"fit_reason"`
}

func (s *Server) handleRoleOptions(w http.ResponseWriter, r *http.Request) {
	var req labs.Profile
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	res, err := s.labs.RoleOptions(r.Context(), req)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (s *Server) handleDaySimulation(w http.ResponseWriter, r *http.Request) {
	var req daySimulationRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	res, err := s.labs.DaySimulation(r.Context(), req.Role, req.FitReason)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (s *Server) handleSparkIdentity(w http.ResponseWriter, r *http.Request) {
	var req labs.IdentityInput
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	res, err := s.labs.SparkIdentity(r.Context(), req)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (s *Server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	var req labs.ConfidenceInput
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	res, err := s.labs.ConfidenceReframe(r.Context(), req)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}
