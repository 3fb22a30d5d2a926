package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fsyportal/internal/event"
)

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.events.All(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": events})
}

func (h *Handler) CurrentEvent(c *gin.Context) {
	id, err := queryID(c, "event_id", false)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, err := h.events.Current(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) NextEvent(c *gin.Context) {
	e, ok, err := h.events.Next(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil, "message": "No upcoming events found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, err := event.ParseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	e, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": e})
}
