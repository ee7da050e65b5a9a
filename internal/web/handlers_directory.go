package web

// handlers_directory.go serves users, teams and locations.

import (
	"net/http"

	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to fetch users"})
		return
	}
	writeJSON(w, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in core.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := s.service.CreateUser(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to add user"})
		return
	}
	writeJSONStatus(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in core.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := s.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to update user", notFound: "User not found"})
		return
	}
	writeJSON(w, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to delete user"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.service.ListTeams(r.Context())
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to fetch teams"})
		return
	}
	writeJSON(w, teams)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in core.TeamInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	team, err := s.service.CreateTeam(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to add team"})
		return
	}
	writeJSONStatus(w, http.StatusCreated, team)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to delete team"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.service.ListLocations(r.Context())
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to fetch locations"})
		return
	}
	writeJSON(w, locations)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var in core.LocationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	location, err := s.service.CreateLocation(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to add location"})
		return
	}
	writeJSONStatus(w, http.StatusCreated, location)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, failure{fallback: "Failed to delete location"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
