package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rnr/backend/internal/application/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
)

// RnRFormHandler exposes the form editing flow over HTTP. Opening a
// form starts an editing session with its autosave timer; leave and
// refresh beacons from the client feed the same flush the timer drives.
type RnRFormHandler struct {
	BaseHandler
	sessions *rnrform.SessionManager
}

// NewRnRFormHandler creates a new RnRFormHandler
func NewRnRFormHandler(sessions *rnrform.SessionManager) *RnRFormHandler {
	return &RnRFormHandler{sessions: sessions}
}

// Get opens (or rejoins) the editing session for a form and returns the
// form with its draft lines.
//
// GET /api/v1/rnr-forms/:id
func (h *RnRFormHandler) Get(c *gin.Context) {
	formID, ok := h.formID(c)
	if !ok {
		return
	}

	session, err := h.sessions.Open(c.Request.Context(), formID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, NewFormResponse(session))
}

// PatchLine applies a partial update to one line and returns the line
// with its recomputed derived fields.
//
// PATCH /api/v1/rnr-forms/:id/lines/:lineId
func (h *RnRFormHandler) PatchLine(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	var req PatchLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := session.PatchLine(lineID, req.ToPatch()); err != nil {
		h.DomainError(c, err)
		return
	}

	draft, found := session.Store().Line(lineID)
	if !found {
		h.NotFound(c, "Line not found")
		return
	}

	h.Success(c, NewLineResponse(draft))
}

// Flush persists pending edits. A leave or refresh reason is the
// client's navigation beacon: the flush is started without waiting for
// the result. Any other reason flushes synchronously.
//
// POST /api/v1/rnr-forms/:id/flush?reason=leave|refresh
func (h *RnRFormHandler) Flush(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	reason := c.DefaultQuery("reason", "manual")
	switch reason {
	case "leave", "refresh":
		session.FlushOnNavigation(reason)
		h.Accepted(c, gin.H{"flushing": true})
	default:
		if err := session.Flush(c.Request.Context()); err != nil {
			h.DomainError(c, err)
			return
		}
		h.Success(c, gin.H{"has_unsaved": session.Store().HasDirty()})
	}
}

// Finalise runs the finalisation workflow for a form. Without
// confirmed=true in the body the response describes the confirmation
// the user must give.
//
// POST /api/v1/rnr-forms/:id/finalise
func (h *RnRFormHandler) Finalise(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	var req FinaliseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := session.Finalise(c.Request.Context(), req.Confirmed); err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, NewFormResponse(session))
}

// CloseSession ends the editing session: the autosave timer stops and a
// final flush is attempted.
//
// DELETE /api/v1/rnr-forms/:id/session
func (h *RnRFormHandler) CloseSession(c *gin.Context) {
	formID, ok := h.formID(c)
	if !ok {
		return
	}

	if err := h.sessions.Close(c.Request.Context(), formID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "No editing session open for this form")
			return
		}
		h.DomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *RnRFormHandler) formID(c *gin.Context) (uuid.UUID, bool) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid form ID")
		return uuid.Nil, false
	}
	return formID, true
}

// openSession resolves the editing session for the form in the path.
// Mutating endpoints require the session to have been opened first.
func (h *RnRFormHandler) openSession(c *gin.Context) (*rnrform.EditSession, bool) {
	formID, ok := h.formID(c)
	if !ok {
		return nil, false
	}

	session, found := h.sessions.Get(formID)
	if !found {
		h.DomainError(c, shared.ErrSessionClosed)
		return nil, false
	}
	return session, true
}
