package portalclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsyportal/internal/attendance"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session_token", Value: "tok", Path: "/"})
		_, _ = w.Write([]byte(`{"message":"Login successful","user":{"id":7,"email":"c@x.org","type":"Counselor"}}`))
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("session_token"); err != nil || c.Value != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/events", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"event_id":1,"event_name":"Opening","status":"past"}]}`))
	}))
	mux.HandleFunc("/api/participants", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("event_id"))
		assert.Equal(t, "9", r.URL.Query().Get("group_id"))
		_, _ = w.Write([]byte(`{"participants":[{"fsy_id":1,"participant_type":"Participant","attendance_status":"Present"}],"counselors":[]}`))
	}))
	mux.HandleFunc("/api/attendance/submit", authed(func(w http.ResponseWriter, r *http.Request) {
		var sub attendance.Submission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		if sub.GroupID != 9 {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"Unauthorized to submit attendance for this group"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	mux.HandleFunc("/api/search-participants", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana cruz", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"data":[{"fsy_id":1,"name":"Ana Cruz"}]}`))
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SessionFlow(t *testing.T) {
	srv := testServer(t)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Events(ctx)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Not authenticated", apiErr.Message)

	user, err := c.Login(ctx, "c@x.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Counselor", user.Type)

	events, err := c.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Opening", events[0].Name)

	roster, err := c.Roster(ctx, 4, 3, 9)
	require.NoError(t, err)
	require.Len(t, roster.Participants, 1)
	assert.Equal(t, attendance.StatusPresent, roster.Participants[0].AttendanceStatus)

	results, err := c.Search(ctx, "ana cruz", 4)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestClient_SubmitError(t *testing.T) {
	srv := testServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = c.Login(ctx, "c@x.org", "pw")
	require.NoError(t, err)

	require.NoError(t, c.Submit(ctx, attendance.Submission{EventID: 4, CompanyID: 3, GroupID: 9, UserID: 7}))

	err = c.Submit(ctx, attendance.Submission{EventID: 4, CompanyID: 3, GroupID: 10, UserID: 7})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
