// Package portalclient calls the portal API on behalf of a counselor.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fsyportal/internal/account"
	"fsyportal/internal/attendance"
	"fsyportal/internal/event"
)

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("portal api %d: %s", e.Status, e.Message)
}

// LoginUser is the profile returned by a successful login.
type LoginUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Type     string `json:"type"`
	FullName string `json:"full_name"`
}

// Client is a session-holding API client. The session cookie set by Login is
// kept in the client's cookie jar.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with its own cookie jar.
func New(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginUser, error) {
	var out struct {
		User LoginUser `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out.User, err
}

// Events lists the schedule annotated with status.
func (c *Client) Events(ctx context.Context) ([]event.Event, error) {
	var out struct {
		Data []event.Event `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/events", nil, nil, &out)
	return out.Data, err
}

// UserInfo returns the logged-in user's group assignment.
func (c *Client) UserInfo(ctx context.Context) (account.UserInfo, error) {
	var out struct {
		Data account.UserInfo `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user-info", nil, nil, &out)
	return out.Data, err
}

// Roster fetches a group's roster for an event.
func (c *Client) Roster(ctx context.Context, eventID, companyID, groupID int64) (attendance.Roster, error) {
	q := url.Values{}
	q.Set("event_id", strconv.FormatInt(eventID, 10))
	q.Set("company_id", strconv.FormatInt(companyID, 10))
	q.Set("group_id", strconv.FormatInt(groupID, 10))
	var out attendance.Roster
	err := c.do(ctx, http.MethodGet, "/api/participants", q, nil, &out)
	return out, err
}

// Submit writes a full roster.
func (c *Client) Submit(ctx context.Context, sub attendance.Submission) error {
	return c.do(ctx, http.MethodPost, "/api/attendance/submit", nil, sub, nil)
}

// Search finds participants by name for an event.
func (c *Client) Search(ctx context.Context, query string, eventID int64) ([]attendance.SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("event_id", strconv.FormatInt(eventID, 10))
	var out struct {
		Data []attendance.SearchResult `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/search-participants", q, nil, &out)
	return out.Data, err
}

// Record checks in a single member.
func (c *Client) Record(ctx context.Context, eventID, fsyID int64, status attendance.Status) error {
	return c.do(ctx, http.MethodPost, "/api/attendance", nil, map[string]any{
		"event_id":          eventID,
		"fsy_id":            fsyID,
		"attendance_status": status,
	}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("portal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
