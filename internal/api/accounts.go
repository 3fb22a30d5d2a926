package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fsyportal/internal/account"
	"fsyportal/internal/apperr"
	"fsyportal/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("body", "Missing email or password"))
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, res.Token, maxAge, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":        res.User.ID,
			"email":     res.User.Email,
			"type":      res.User.Type,
			"full_name": res.User.FullName,
		},
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// UserInfo returns the caller's group assignment. userId, when given, must be
// the caller.
func (h *Handler) UserInfo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	userID, err := queryID(c, "userId", false)
	if err != nil {
		h.fail(c, err)
		return
	}
	if userID == 0 {
		userID = s.UserID
	}
	if userID != s.UserID {
		h.fail(c, apperr.Forbidden("Cannot view another user's information"))
		return
	}
	info, err := h.accounts.UserInfo(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

// MemberInfo returns a registrant's profile to the registrant or to a member
// of the same group.
func (h *Handler) MemberInfo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	fsyID, err := queryID(c, "fsyId", true)
	if err != nil {
		h.fail(c, err)
		return
	}
	me, err := h.accounts.GroupOf(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := h.accounts.MemberInfo(c.Request.Context(), fsyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	target := auth.GroupRef{CompanyName: m.CompanyName, GroupName: m.GroupName}
	if m.FsyID != me.FsyID && !auth.CanView(s.Role, me.Group(), target) {
		h.fail(c, apperr.Forbidden("Cannot view this member"))
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var upd account.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.fail(c, apperr.Validation("body", "Invalid request body"))
		return
	}
	if err := h.accounts.UpdateProfile(c.Request.Context(), s, upd); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully"})
}
