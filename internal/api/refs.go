package api

import (
	"errors"
	"net/http"

	"github.com/ntbworks/dockyard/internal/db"
)

// currentUser maps the authenticated Microsoft identity onto the fleet user
// row. Identities without a row are authenticated but not provisioned.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*db.User, bool) {
	u, err := s.db.GetUserByMSID(r.Context(), principal(r).ObjectID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusForbidden, "user not provisioned")
		return nil, false
	}
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return u, true
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	users, err := s.db.ListUsers(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(users))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := s.db.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	roles, err := s.db.ListUserRoles(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(roles))
}

func (s *Server) handleListShips(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	ships, err := s.db.ListShips(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(ships))
}

func (s *Server) handleGetShip(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ship id")
		return
	}
	ship, err := s.db.GetShip(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ship)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	roles, err := s.db.ListRoles(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(roles))
}
