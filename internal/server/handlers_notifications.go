package server

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	notifications, err := s.store.ListNotifications(r.Context(), userID, queryBool(r, "unread"))
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	updated, err := s.store.MarkNotificationRead(r.Context(), notificationID)
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	if !updated {
		s.writeErrorReq(w, r, http.StatusNotFound,
			notFoundCode(fmt.Errorf("notification not found"), ErrCodeNotificationNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": notificationID, "read": true})
}
