package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// taskRef pulls the (project id, task number) pair out of the URL. Task
// numbers are only unique within their project.
func taskRef(w http.ResponseWriter, r *http.Request) (projectID, taskNumber int64, ok bool) {
	projectID, ok = urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, 0, false
	}
	taskNumber, ok = urlID(r, "taskNumber")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task number")
		return 0, 0, false
	}
	return projectID, taskNumber, true
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	tasks, err := s.db.ListTasks(r.Context(), projectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(tasks))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	task, err := s.db.CreateTask(r.Context(), projectID, req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	task, err := s.db.GetTask(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := s.db.UpdateTask(r.Context(), projectID, taskNumber, req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteTask(r.Context(), projectID, taskNumber); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTaskAssignments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	assignments, err := s.db.ListTaskAssignments(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(assignments))
}

func (s *Server) handleCreateTaskAssignment(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	task, err := s.db.GetTask(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	assignment, err := s.db.CreateTaskAssignment(r.Context(), projectID, taskNumber, req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	go s.notifyAssignment(req.UserID, "task", fmt.Sprintf("%s (#%d)", task.Name, task.TaskNumber))
	writeJSON(w, http.StatusCreated, assignment)
}

func (s *Server) handleDeleteTaskAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}
	if err := s.db.DeleteTaskAssignment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTaskComments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	comments, err := s.db.ListTaskComments(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(comments))
}

func (s *Server) handleCreateTaskComment(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	comment, err := s.db.CreateTaskComment(r.Context(), projectID, taskNumber, u.ID, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteTaskComment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}
	if err := s.db.DeleteTaskComment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
