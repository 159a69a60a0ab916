// Package api is the JSON HTTP surface: project/task/todo CRUD with the
// store-assigned numbering, their side resources, attachment transfer through
// the SharePoint drive, and the whoami/debug endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/ntbworks/dockyard/internal/auth"
	"github.com/ntbworks/dockyard/internal/config"
	"github.com/ntbworks/dockyard/internal/db"
	"github.com/ntbworks/dockyard/internal/graph"
	"github.com/ntbworks/dockyard/internal/kv"
	"github.com/ntbworks/dockyard/internal/mailer"
)

type Server struct {
	db     *db.DB
	bridge *auth.Bridge
	drive  *graph.Client
	mail   *mailer.Client
	store  kv.Store
	cfg    config.Config
}

func New(database *db.DB, bridge *auth.Bridge, drive *graph.Client, mail *mailer.Client, store kv.Store, cfg config.Config) *Server {
	return &Server{
		db:     database,
		bridge: bridge,
		drive:  drive,
		mail:   mail,
		store:  store,
		cfg:    cfg,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/debug/whoami", s.handleDebugWhoami)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/whoami", s.handleWhoami)

		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/users/{id}/roles", s.handleListUserRoles)
		r.Get("/ships", s.handleListShips)
		r.Get("/ships/{id}", s.handleGetShip)
		r.Get("/roles", s.handleListRoles)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Put("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)

				r.Get("/assignments", s.handleListProjectAssignments)
				r.Post("/assignments", s.handleCreateProjectAssignment)
				r.Delete("/assignments/{id}", s.handleDeleteProjectAssignment)

				r.Get("/photos", s.handleListPhotos)
				r.Post("/photos", s.handleCreatePhoto)
				r.Delete("/photos/{id}", s.handleDeletePhoto)

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", s.handleListTasks)
					r.Post("/", s.handleCreateTask)

					r.Route("/{taskNumber}", func(r chi.Router) {
						r.Get("/", s.handleGetTask)
						r.Put("/", s.handleUpdateTask)
						r.Delete("/", s.handleDeleteTask)

						r.Get("/assignments", s.handleListTaskAssignments)
						r.Post("/assignments", s.handleCreateTaskAssignment)
						r.Delete("/assignments/{id}", s.handleDeleteTaskAssignment)

						r.Get("/comments", s.handleListTaskComments)
						r.Post("/comments", s.handleCreateTaskComment)
						r.Delete("/comments/{id}", s.handleDeleteTaskComment)

						r.Get("/attachments", s.handleListTaskAttachments)
						r.Post("/attachments", s.handleUploadTaskAttachment)
						r.Get("/attachments/{id}/download", s.handleDownloadTaskAttachment)
						r.Delete("/attachments/{id}", s.handleDeleteTaskAttachment)

						r.Route("/todos", func(r chi.Router) {
							r.Get("/", s.handleListTodos)
							r.Post("/", s.handleCreateTodo)

							r.Route("/{todoNumber}", func(r chi.Router) {
								r.Get("/", s.handleGetTodo)
								r.Put("/", s.handleUpdateTodo)
								r.Delete("/", s.handleDeleteTodo)
								r.Post("/complete", s.handleCompleteTodo)

								r.Get("/assignments", s.handleListTodoAssignments)
								r.Post("/assignments", s.handleCreateTodoAssignment)
								r.Delete("/assignments/{id}", s.handleDeleteTodoAssignment)

								r.Get("/comments", s.handleListTodoComments)
								r.Post("/comments", s.handleCreateTodoComment)
								r.Delete("/comments/{id}", s.handleDeleteTodoComment)

								r.Get("/attachments", s.handleListTodoAttachments)
								r.Post("/attachments", s.handleUploadTodoAttachment)
								r.Get("/attachments/{id}/download", s.handleDownloadTodoAttachment)
								r.Delete("/attachments/{id}", s.handleDeleteTodoAttachment)
							})
						})
					})
				})
			})
		})

		r.Get("/files/{itemID}/link", s.handleShareLink)
		r.Get("/files/{itemID}/preview", s.handlePreviewLink)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels onto their status codes. ErrConflict
// is 409 so clients know a create raced and can retry.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case err == db.ErrNotFound:
		writeError(w, http.StatusNotFound, "not found")
	case err == db.ErrConflict:
		writeError(w, http.StatusConflict, "conflict, retry")
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func urlID(r *http.Request, name string) (int64, bool) {
	return parseInt(chi.URLParam(r, name))
}

func parseInt(v string) (int64, bool) {
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil && n > 0
}

func pagination(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return skip, limit
}

func emptySlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeJSON(w, http.StatusOK, map[string]string{"ms_oid": p.ObjectID})
}

// handleDebugWhoami shows what the auth middleware would see: the cookie the
// service expects, the value the client sent, and the computed cache keys.
// It never returns token material.
func (s *Server) handleDebugWhoami(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"cookie_name":  s.cfg.Auth.SessionCookie,
		"session_key":  nil,
		"user_key":     nil,
		"x_user_id":    r.Header.Get("X-User-ID"),
		"origin":       r.Header.Get("Origin"),
		"store_online": true,
	}
	if c, err := r.Cookie(s.cfg.Auth.SessionCookie); err == nil {
		out["session_key"] = s.cfg.Auth.SessionKeyPrefix + c.Value
	}
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		out["user_key"] = s.cfg.Auth.UserKeyPrefix + uid
	}
	if err := s.store.Ping(r.Context()); err != nil {
		out["store_online"] = false
		out["store_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}
