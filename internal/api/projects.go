package api

import (
	"encoding/json"
	"net/http"

	"github.com/ntbworks/dockyard/internal/db"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	ctx := r.Context()

	var (
		projects []db.Project
		err      error
	)
	if r.URL.Query().Get("mine") == "true" {
		u, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		projects, err = s.db.ListProjectsByOwner(ctx, u.ID, skip, limit)
	} else {
		projects, err = s.db.ListProjects(ctx, skip, limit)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(projects))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var params db.ProjectParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if params.Name == nil || *params.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	project, err := s.db.CreateProject(r.Context(), u.ID, params)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	project, err := s.db.GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var params db.ProjectParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	project, err := s.db.UpdateProject(r.Context(), id, params)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := s.db.DeleteProject(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type assignmentRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) handleListProjectAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	assignments, err := s.db.ListProjectAssignments(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(assignments))
}

func (s *Server) handleCreateProjectAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	project, err := s.db.GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	assignment, err := s.db.CreateProjectAssignment(r.Context(), id, req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	go s.notifyAssignment(req.UserID, "project", project.Name)
	writeJSON(w, http.StatusCreated, assignment)
}

func (s *Server) handleDeleteProjectAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}
	if err := s.db.DeleteProjectAssignment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
