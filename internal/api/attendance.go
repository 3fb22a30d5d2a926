package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fsyportal/internal/apperr"
	"fsyportal/internal/attendance"
	"fsyportal/internal/auth"
)

// Participants returns a group's roster for an event. Callers may only read
// their own group.
func (h *Handler) Participants(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	eventID, err := queryID(c, "event_id", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	companyID, err := queryID(c, "company_id", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	groupID, err := queryID(c, "group_id", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	me, err := h.accounts.GroupOf(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !auth.CanView(s.Role, me.Group(), auth.GroupRef{CompanyID: companyID, GroupID: groupID}) {
		h.fail(c, apperr.Forbidden("Unauthorized to view this group"))
		return
	}
	roster, err := h.attendance.Roster(c.Request.Context(), eventID, companyID, groupID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

// CounselorParticipants returns the caller's own group without event status.
func (h *Handler) CounselorParticipants(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	me, err := h.accounts.GroupOf(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	roster, err := h.attendance.Roster(c.Request.Context(), 0, me.CompanyID, me.GroupID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

type recordRequest struct {
	EventID          int64  `json:"event_id"`
	FsyID            int64  `json:"fsy_id"`
	AttendanceStatus string `json:"attendance_status"`
}

func (h *Handler) RecordAttendance(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("body", "Missing required fields"))
		return
	}
	if err := h.attendance.Record(c.Request.Context(), req.EventID, req.FsyID, req.AttendanceStatus, s.UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance recorded successfully"})
}

// SubmitAttendance writes a whole roster. The caller must belong to the
// submitted group and submits under their own user id.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var sub attendance.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.fail(c, apperr.Validation("body", "Event ID, Company ID, Group ID, and User ID are required"))
		return
	}
	if sub.UserID == 0 {
		sub.UserID = s.UserID
	}
	if sub.UserID != s.UserID {
		h.fail(c, apperr.Forbidden("Cannot submit attendance as another user"))
		return
	}
	me, err := h.accounts.GroupOf(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	target := auth.GroupRef{CompanyID: sub.CompanyID, GroupID: sub.GroupID}
	if !auth.CanAccess(s.Role, me.Group(), target) {
		h.fail(c, apperr.Forbidden("Unauthorized to submit attendance for this group"))
		return
	}
	if err := h.attendance.Submit(c.Request.Context(), sub); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) SearchParticipants(c *gin.Context) {
	eventID, err := queryID(c, "event_id", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	results, err := h.attendance.Search(c.Request.Context(), c.Query("query"), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
