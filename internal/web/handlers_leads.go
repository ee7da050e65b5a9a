package web

import (
	"net/http"

	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/go-chi/chi/v5"
)

const msgInvalidBody = "Invalid request body"

// AssignResponse is the body returned after a successful assignment.
type AssignResponse struct {
	Message string     `json:"message"`
	Lead    *core.Lead `json:"lead"`
}

// handleListLeads returns the leads visible to the role and user in the query.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.service.ListLeads(r.Context(), leadScope(r))
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to fetch leads"})
		return
	}
	writeJSON(w, leads)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	lead, err := s.service.CreateLead(r.Context(), in, leadScope(r))
	if err != nil {
		s.respondError(w, r, err, failure{
			fallback:   "Failed to add lead",
			validation: "Full name, email, and phone are required",
		})
		return
	}
	writeJSONStatus(w, http.StatusCreated, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	lead, err := s.service.UpdateLead(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, err, failure{
			fallback:   "Failed to update lead",
			validation: "Missing required fields",
			notFound:   "Lead not found",
		})
		return
	}
	writeJSON(w, lead)
}

func (s *Server) handleAssignLead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	lead, err := s.service.AssignLead(r.Context(), chi.URLParam(r, "id"), body.AssignedTo)
	if err != nil {
		s.respondError(w, r, err, failure{
			fallback:   "Failed to assign lead",
			validation: "Missing assigned_to value",
			notFound:   "Lead not found",
		})
		return
	}
	writeJSON(w, AssignResponse{Message: "Lead assigned successfully", Lead: lead})
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLead(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to delete lead"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
