package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func todoRef(w http.ResponseWriter, r *http.Request) (projectID, taskNumber, todoNumber int64, ok bool) {
	projectID, taskNumber, ok = taskRef(w, r)
	if !ok {
		return 0, 0, 0, false
	}
	todoNumber, ok = urlID(r, "todoNumber")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid todo number")
		return 0, 0, 0, false
	}
	return projectID, taskNumber, todoNumber, true
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	todos, err := s.db.ListTodos(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(todos))
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	var req struct {
		Description string     `json:"description"`
		Start       *time.Time `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	todo, err := s.db.CreateTodo(r.Context(), projectID, taskNumber, req.Description, req.Start)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	todo, err := s.db.GetTodo(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	var req struct {
		Description *string    `json:"description"`
		Start       *time.Time `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	todo, err := s.db.UpdateTodo(r.Context(), projectID, taskNumber, todoNumber, req.Description, req.Start)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleCompleteTodo(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	todo, err := s.db.CompleteTodo(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteTodo(r.Context(), projectID, taskNumber, todoNumber); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTodoAssignments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	assignments, err := s.db.ListTodoAssignments(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(assignments))
}

func (s *Server) handleCreateTodoAssignment(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	todo, err := s.db.GetTodo(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	assignment, err := s.db.CreateTodoAssignment(r.Context(), projectID, taskNumber, todoNumber, req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	go s.notifyAssignment(req.UserID, "todo", fmt.Sprintf("%s (#%d)", todo.Description, todo.TodoNumber))
	writeJSON(w, http.StatusCreated, assignment)
}

func (s *Server) handleDeleteTodoAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}
	if err := s.db.DeleteTodoAssignment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTodoComments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	comments, err := s.db.ListTodoComments(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(comments))
}

func (s *Server) handleCreateTodoComment(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
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
	comment, err := s.db.CreateTodoComment(r.Context(), projectID, taskNumber, todoNumber, u.ID, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteTodoComment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}
	if err := s.db.DeleteTodoComment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
