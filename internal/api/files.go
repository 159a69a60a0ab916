package api

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ntbworks/dockyard/internal/db"
	"github.com/ntbworks/dockyard/internal/graph"
)

// Uploads above this are rejected before touching the drive.
const maxUploadBytes = 250 << 20

func iconFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "pdf"
	case ".doc", ".docx":
		return "word"
	case ".xls", ".xlsx", ".csv":
		return "excel"
	case ".ppt", ".pptx":
		return "powerpoint"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return "image"
	case ".zip", ".7z", ".rar":
		return "archive"
	default:
		return "file"
	}
}

func (s *Server) driveReady(w http.ResponseWriter) bool {
	if s.drive == nil {
		writeError(w, http.StatusServiceUnavailable, "file storage not configured")
		return false
	}
	return true
}

// readUpload pulls the "file" part out of the multipart body.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return nil, nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return nil, nil, false
	}
	return data, header, true
}

func (s *Server) handleListTaskAttachments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	attachments, err := s.db.ListTaskAttachments(r.Context(), projectID, taskNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(attachments))
}

func (s *Server) handleUploadTaskAttachment(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	projectID, taskNumber, ok := taskRef(w, r)
	if !ok {
		return
	}
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if _, err := s.db.GetTask(r.Context(), projectID, taskNumber); err != nil {
		writeStoreError(w, err)
		return
	}
	data, header, ok := readUpload(w, r)
	if !ok {
		return
	}

	item, err := s.drive.Upload(r.Context(), s.cfg.Graph.AttachmentFolder, graph.UniqueName(header.Filename), data)
	if err != nil {
		log.Printf("api: upload %q: %v", header.Filename, err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}
	attachment, err := s.db.CreateTaskAttachment(r.Context(), db.TaskAttachment{
		ProjectID:   projectID,
		TaskNumber:  taskNumber,
		UserID:      u.ID,
		FileID:      item.ID,
		DirectoryID: s.cfg.Graph.AttachmentFolder,
		OriginName:  header.Filename,
		Title:       header.Filename,
		Icon:        iconFor(header.Filename),
	})
	if err != nil {
		// Orphaned drive item; best effort cleanup.
		if derr := s.drive.Delete(r.Context(), item.ID); derr != nil {
			log.Printf("api: cleanup %s: %v", item.ID, derr)
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

func (s *Server) handleDownloadTaskAttachment(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	attachment, err := s.db.GetTaskAttachment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.streamFile(w, r, attachment.FileID, attachment.OriginName)
}

func (s *Server) handleDeleteTaskAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	attachment, err := s.db.GetTaskAttachment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.db.DeleteTaskAttachment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if s.drive != nil {
		if err := s.drive.Delete(r.Context(), attachment.FileID); err != nil {
			log.Printf("api: delete drive item %s: %v", attachment.FileID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTodoAttachments(w http.ResponseWriter, r *http.Request) {
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	attachments, err := s.db.ListTodoAttachments(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(attachments))
}

func (s *Server) handleUploadTodoAttachment(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	projectID, taskNumber, todoNumber, ok := todoRef(w, r)
	if !ok {
		return
	}
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if _, err := s.db.GetTodo(r.Context(), projectID, taskNumber, todoNumber); err != nil {
		writeStoreError(w, err)
		return
	}
	data, header, ok := readUpload(w, r)
	if !ok {
		return
	}

	item, err := s.drive.Upload(r.Context(), s.cfg.Graph.AttachmentFolder, graph.UniqueName(header.Filename), data)
	if err != nil {
		log.Printf("api: upload %q: %v", header.Filename, err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}
	attachment, err := s.db.CreateTodoAttachment(r.Context(), db.TodoAttachment{
		ProjectID:   projectID,
		TaskNumber:  taskNumber,
		TodoNumber:  todoNumber,
		UserID:      u.ID,
		FileID:      item.ID,
		DirectoryID: s.cfg.Graph.AttachmentFolder,
		OriginName:  header.Filename,
		Title:       header.Filename,
		Icon:        iconFor(header.Filename),
	})
	if err != nil {
		if derr := s.drive.Delete(r.Context(), item.ID); derr != nil {
			log.Printf("api: cleanup %s: %v", item.ID, derr)
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

func (s *Server) handleDownloadTodoAttachment(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	attachment, err := s.db.GetTodoAttachment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.streamFile(w, r, attachment.FileID, attachment.OriginName)
}

func (s *Server) handleDeleteTodoAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}
	attachment, err := s.db.GetTodoAttachment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.db.DeleteTodoAttachment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if s.drive != nil {
		if err := s.drive.Delete(r.Context(), attachment.FileID); err != nil {
			log.Printf("api: delete drive item %s: %v", attachment.FileID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) streamFile(w http.ResponseWriter, r *http.Request, fileID, name string) {
	body, err := s.drive.Download(r.Context(), fileID)
	if err != nil {
		log.Printf("api: download %s: %v", fileID, err)
		writeError(w, http.StatusBadGateway, "download failed")
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.Copy(w, body)
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var taskNumber, todoNumber *int64
	if n, ok := queryInt(r, "task_number"); ok {
		taskNumber = &n
	}
	if n, ok := queryInt(r, "todo_number"); ok {
		todoNumber = &n
	}
	photos, err := s.db.ListProjectPhotos(r.Context(), projectID, taskNumber, todoNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(photos))
}

func (s *Server) handleCreatePhoto(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	projectID, ok := urlID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if _, err := s.db.GetProject(r.Context(), projectID); err != nil {
		writeStoreError(w, err)
		return
	}
	data, header, ok := readUpload(w, r)
	if !ok {
		return
	}
	photo := db.ProjectPhoto{
		ProjectID:   projectID,
		UserID:      u.ID,
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
	}
	if n, ok := formInt(r, "task_number"); ok {
		photo.TaskNumber = &n
	}
	if n, ok := formInt(r, "todo_number"); ok {
		photo.TodoNumber = &n
	}

	item, err := s.drive.Upload(r.Context(), s.cfg.Graph.AttachmentFolder, graph.UniqueName(header.Filename), data)
	if err != nil {
		log.Printf("api: upload %q: %v", header.Filename, err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}
	photo.FileID = item.ID
	created, err := s.db.CreateProjectPhoto(r.Context(), photo)
	if err != nil {
		if derr := s.drive.Delete(r.Context(), item.ID); derr != nil {
			log.Printf("api: cleanup %s: %v", item.ID, derr)
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid photo id")
		return
	}
	photo, err := s.db.GetProjectPhoto(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.db.DeleteProjectPhoto(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if s.drive != nil {
		if err := s.drive.Delete(r.Context(), photo.FileID); err != nil {
			log.Printf("api: delete drive item %s: %v", photo.FileID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	link, err := s.drive.ShareLink(r.Context(), itemID)
	if err != nil {
		log.Printf("api: share link %s: %v", itemID, err)
		writeError(w, http.StatusBadGateway, "share link failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (s *Server) handlePreviewLink(w http.ResponseWriter, r *http.Request) {
	if !s.driveReady(w) {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	link, err := s.drive.PreviewLink(r.Context(), itemID)
	if err != nil {
		log.Printf("api: preview link %s: %v", itemID, err)
		writeError(w, http.StatusBadGateway, "preview link failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func queryInt(r *http.Request, name string) (int64, bool) {
	return parseInt(r.URL.Query().Get(name))
}

func formInt(r *http.Request, name string) (int64, bool) {
	return parseInt(r.FormValue(name))
}
