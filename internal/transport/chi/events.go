package chi

import (
	"encoding/json"
	"net/http"

	"github.com/khojilab/khoji/internal/domain"
)

// Content event kinds pushed by the owning content modules.
const (
	eventCreated = "created"
	eventUpdated = "updated"
	eventDeleted = "deleted"
)

// contentEventRequest is the body of POST /api/v1/internal/content-events.
// Created and updated events carry the full text snapshot; the index
// never fetches source content itself.
type contentEventRequest struct {
	Event       string `json:"event"`
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	contentBody
}

// handleContentEvent handles POST /api/v1/internal/content-events.
func (s *Server) handleContentEvent(w http.ResponseWriter, r *http.Request) {
	var body contentEventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	key, err := domain.NewContentKey(body.ContentID, domain.ContentType(body.ContentType))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	switch body.Event {
	case eventCreated:
		doc, err := s.index.OnContentCreated(r.Context(), key, body.payload())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, documentToResponse(&doc))

	case eventUpdated:
		doc, err := s.index.OnContentUpdated(r.Context(), key, body.payload())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, documentToResponse(&doc))

	case eventDeleted:
		if err := s.index.OnContentDeleted(r.Context(), key); err != nil {
			s.handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown event "+body.Event)
	}
}
