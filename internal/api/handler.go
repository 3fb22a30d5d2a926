// Package api exposes the portal over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fsyportal/internal/account"
	"fsyportal/internal/apperr"
	"fsyportal/internal/attendance"
	"fsyportal/internal/auth"
	"fsyportal/internal/cloudinary"
	"fsyportal/internal/event"
	"fsyportal/internal/httpmiddleware"
	"fsyportal/internal/notes"
)

// EventService lists events and resolves the current one.
type EventService interface {
	All(ctx context.Context) ([]event.Event, error)
	Current(ctx context.Context, id int64) (event.Event, error)
	Next(ctx context.Context) (event.Event, bool, error)
	Get(ctx context.Context, id int64) (event.Event, error)
}

// AttendanceService reads rosters and records attendance.
type AttendanceService interface {
	Roster(ctx context.Context, eventID, companyID, groupID int64) (attendance.Roster, error)
	Submit(ctx context.Context, sub attendance.Submission) error
	Record(ctx context.Context, eventID, fsyID int64, status string, userID int64) error
	Search(ctx context.Context, term string, eventID int64) ([]attendance.SearchResult, error)
}

// AccountService signs members in and reads their profiles.
type AccountService interface {
	Login(ctx context.Context, email, password string) (account.LoginResult, error)
	UserInfo(ctx context.Context, userID int64) (account.UserInfo, error)
	GroupOf(ctx context.Context, session auth.Session) (account.UserInfo, error)
	MemberInfo(ctx context.Context, fsyID int64) (account.MemberInfo, error)
	UpdateProfile(ctx context.Context, session auth.Session, upd account.ProfileUpdate) error
}

// NoteService manages counselor notes on participants.
type NoteService interface {
	List(ctx context.Context, session auth.Session, participantFsyID int64) ([]notes.Note, error)
	Create(ctx context.Context, session auth.Session, d notes.Draft) (notes.Note, error)
	Update(ctx context.Context, session auth.Session, noteID int64, d notes.Draft) error
	Delete(ctx context.Context, session auth.Session, noteID int64) error
}

// Uploader stores images and returns their public URL.
type Uploader interface {
	UploadDataURL(ctx context.Context, data string) (*cloudinary.UploadResult, error)
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// HealthChecker is a dependency reported on /healthz.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Cookie configures the session cookie.
type Cookie struct {
	Name   string
	Secure bool
}

// Handler serves the portal API.
type Handler struct {
	events     EventService
	attendance AttendanceService
	accounts   AccountService
	notes      NoteService
	uploader   Uploader // nil if image storage is not configured
	sessions   *auth.Issuer
	cookie     Cookie
	checks     map[string]HealthChecker
	log        *zap.Logger
}

// Deps lists what New needs.
type Deps struct {
	Events     EventService
	Attendance AttendanceService
	Accounts   AccountService
	Notes      NoteService
	Uploader   Uploader
	Sessions   *auth.Issuer
	Cookie     Cookie
	Checks     map[string]HealthChecker
	Log        *zap.Logger
}

// New builds a Handler, defaulting the logger and cookie name.
func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Cookie.Name == "" {
		d.Cookie.Name = "session_token"
	}
	return &Handler{
		events:     d.Events,
		attendance: d.Attendance,
		accounts:   d.Accounts,
		notes:      d.Notes,
		uploader:   d.Uploader,
		sessions:   d.Sessions,
		cookie:     d.Cookie,
		checks:     d.Checks,
		log:        d.Log.Named("api"),
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)

	session := api.Group("", auth.RequireSession(h.sessions, h.cookie.Name))
	{
		session.GET("/events", h.ListEvents)
		session.GET("/events/current", h.CurrentEvent)
		session.GET("/events/next", h.NextEvent)
		session.GET("/event/:id", h.GetEvent)
		session.GET("/participants", h.Participants)
		session.GET("/user-info", h.UserInfo)
		session.GET("/member/info", h.MemberInfo)
		session.POST("/profile/update", h.UpdateProfile)
	}

	counselor := session.Group("", auth.RequireRole(auth.RoleCounselor))
	{
		counselor.GET("/counselor-participants", h.CounselorParticipants)
		counselor.POST("/attendance", h.RecordAttendance)
		counselor.POST("/attendance/submit", h.SubmitAttendance)
		counselor.GET("/search-participants", h.SearchParticipants)
		counselor.GET("/participant-notes", h.ListNotes)
		counselor.POST("/participant-notes", h.CreateNote)
		counselor.PATCH("/participant-notes", h.UpdateNote)
		counselor.DELETE("/participant-notes", h.DeleteNote)
		counselor.POST("/upload", h.Upload)
	}
}

// Healthz reports each dependency; any unhealthy one turns the status 503.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		healthy := check != nil && check.Healthy(ctx)
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// fail converts err at the boundary. Server-side failures are logged with
// their cause; the client only sees the public message.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": apperr.PublicMessage(err)}
	if fields, ok := apperr.FieldErrors(err); ok {
		body["fields"] = fields
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", httpmiddleware.RequestIDFrom(c)),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) session(c *gin.Context) (auth.Session, bool) {
	s, ok := auth.SessionFrom(c)
	if !ok {
		h.fail(c, apperr.Unauthenticated("Not authenticated"))
	}
	return s, ok
}

// queryID parses an integer query parameter. required rejects empty values.
func queryID(c *gin.Context, name string, required bool) (int64, error) {
	raw := c.Query(name)
	if raw == "" && required {
		return 0, apperr.Validation(name, name+" is required")
	}
	return event.ParseID(name, raw)
}
