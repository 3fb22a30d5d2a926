package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsyportal/internal/apperr"
)

const testKey = "test-signing-key-0123456789"

func TestIssueDecodeRoundTrip(t *testing.T) {
	iss := NewIssuer(testKey, "fsy-portal", time.Hour)

	token, exp, err := iss.Issue(42, "ana@example.com", RoleCounselor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	s, err := iss.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.UserID)
	assert.Equal(t, RoleCounselor, s.Role)
	assert.Equal(t, "ana@example.com", s.Email)
}

func TestDecodeFailsClosed(t *testing.T) {
	iss := NewIssuer(testKey, "fsy-portal", time.Hour)
	good, _, err := iss.Issue(1, "a@b.c", RoleParticipant)
	require.NoError(t, err)

	expired := NewIssuer(testKey, "fsy-portal", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(1, "a@b.c", RoleParticipant)
	require.NoError(t, err)

	other, _, err := NewIssuer("another-signing-key-xyz", "fsy-portal", time.Hour).Issue(1, "a@b.c", RoleParticipant)
	require.NoError(t, err)

	foreign, _, err := NewIssuer(testKey, "someone-else", time.Hour).Issue(1, "a@b.c", RoleParticipant)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"tampered":       tamper(good),
		"expired":        old,
		"wrong key":      other,
		"wrong issuer":   foreign,
		"old version":    signRaw(t, Claims{Version: 0, UserID: 1, Role: RoleCounselor}),
		"missing user":   signRaw(t, Claims{Version: ClaimsVersion, Role: RoleCounselor}),
		"unknown role":   signRaw(t, Claims{Version: ClaimsVersion, UserID: 1, Role: "Admin"}),
		"no expiry":      signRawNoExp(t, Claims{Version: ClaimsVersion, UserID: 1, Role: RoleCounselor}),
		"none algorithm": noneToken(t),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Decode(token)
			assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
		})
	}
}

func tamper(token string) string {
	parts := strings.SplitN(token, ".", 3)
	parts[1] = "f" + parts[1][1:]
	return strings.Join(parts, ".")
}

func signRaw(t *testing.T, c Claims) string {
	t.Helper()
	c.Issuer = "fsy-portal"
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testKey))
	require.NoError(t, err)
	return s
}

func signRawNoExp(t *testing.T, c Claims) string {
	t.Helper()
	c.Issuer = "fsy-portal"
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testKey))
	require.NoError(t, err)
	return s
}

func noneToken(t *testing.T) string {
	t.Helper()
	c := Claims{Version: ClaimsVersion, UserID: 1, Role: RoleCounselor}
	c.Issuer = "fsy-portal"
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "S3cret"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestCanAccess(t *testing.T) {
	mine := GroupRef{CompanyName: "Company 1", GroupName: "Group A"}
	other := GroupRef{CompanyName: "Company 1", GroupName: "Group B"}

	assert.True(t, CanAccess(RoleCounselor, mine, mine))
	assert.False(t, CanAccess(RoleCounselor, mine, other))
	assert.False(t, CanAccess(RoleParticipant, mine, mine))
	assert.False(t, CanAccess(RoleCounselor, GroupRef{}, GroupRef{}))

	byID := GroupRef{CompanyID: 1, GroupID: 2, CompanyName: "Company 1", GroupName: "Group A"}
	assert.True(t, CanAccess(RoleCounselor, byID, GroupRef{CompanyID: 1, GroupID: 2}))
	assert.False(t, CanAccess(RoleCounselor, byID, GroupRef{CompanyID: 1, GroupID: 3}))
	assert.True(t, CanAccess(RoleCounselor, byID, mine), "falls back to names when ids are missing")
}

func TestCanView(t *testing.T) {
	mine := GroupRef{CompanyID: 3, GroupID: 9, CompanyName: "Company 3", GroupName: "Group 9"}

	assert.True(t, CanView(RoleParticipant, mine, GroupRef{CompanyID: 3, GroupID: 9}))
	assert.True(t, CanView(RoleCounselor, mine, GroupRef{CompanyName: "Company 3", GroupName: "Group 9"}))
	assert.False(t, CanView(RoleParticipant, mine, GroupRef{CompanyID: 5, GroupID: 11}))
	assert.False(t, CanView(Role("Admin"), mine, mine))
	assert.False(t, CanView(RoleCounselor, mine, GroupRef{}))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := NewIssuer(testKey, "fsy-portal", time.Hour)
	counselor, _, _ := iss.Issue(5, "c@x.org", RoleCounselor)
	participant, _, _ := iss.Issue(6, "p@x.org", RoleParticipant)

	r := gin.New()
	r.GET("/me", RequireSession(iss, "session_token"), func(c *gin.Context) {
		s, _ := SessionFrom(c)
		c.JSON(http.StatusOK, gin.H{"uid": s.UserID})
	})
	r.GET("/staff", RequireSession(iss, "session_token"), RequireRole(RoleCounselor), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(path string, mutate func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		mutate(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	cookie := func(tok string) func(*http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session_token", Value: tok}) }
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", func(*http.Request) {}))
	assert.Equal(t, http.StatusOK, do("/me", cookie(participant)))
	assert.Equal(t, http.StatusOK, do("/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+participant) }))
	assert.Equal(t, http.StatusUnauthorized, do("/me", cookie("junk")))
	assert.Equal(t, http.StatusForbidden, do("/staff", cookie(participant)))
	assert.Equal(t, http.StatusNoContent, do("/staff", cookie(counselor)))
}
