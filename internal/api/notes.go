package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fsyportal/internal/apperr"
	"fsyportal/internal/notes"
)

func (h *Handler) ListNotes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	participantID, err := queryID(c, "participantId", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.notes.List(c.Request.Context(), s, participantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateNote(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var d notes.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		h.fail(c, apperr.Validation("body", "Missing required fields"))
		return
	}
	n, err := h.notes.Create(c.Request.Context(), s, d)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "note_id": n.ID, "note": n})
}

func (h *Handler) UpdateNote(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	noteID, err := queryID(c, "noteId", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	var d notes.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		h.fail(c, apperr.Validation("body", "Missing required fields"))
		return
	}
	if err := h.notes.Update(c.Request.Context(), s, noteID, d); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DeleteNote(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	noteID, err := queryID(c, "noteId", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.notes.Delete(c.Request.Context(), s, noteID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
