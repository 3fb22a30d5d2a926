package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fsyportal/internal/apperr"
)

// ClaimsVersion is bumped whenever the token payload changes shape. Tokens
// carrying any other version are rejected.
const ClaimsVersion = 1

// Role is the account type stored on the user row.
type Role string

const (
	RoleCounselor   Role = "Counselor"
	RoleParticipant Role = "Participant"
)

func (r Role) valid() bool {
	return r == RoleCounselor || r == RoleParticipant
}

// Claims represents the session token payload.
type Claims struct {
	Version int    `json:"v"`
	UserID  int64  `json:"uid"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

// Session is the identity resolved from a valid token.
type Session struct {
	UserID    int64
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// Issuer signs and decodes HS256 session tokens.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. ttl is the lifetime of issued tokens.
func NewIssuer(signingKey, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(signingKey), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (i *Issuer) Issue(userID int64, email string, role Role) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Version: ClaimsVersion,
		UserID:  userID,
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Decode validates a token and returns its session. Every failure, whatever
// the cause, is reported as unauthenticated.
func (i *Issuer) Decode(tokenStr string) (Session, error) {
	if tokenStr == "" {
		return Session{}, apperr.Unauthenticated("Not authenticated")
	}
	claims, err := i.parse(tokenStr)
	if err != nil {
		return Session{}, apperr.Unauthenticated("Not authenticated")
	}
	return Session{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (i *Issuer) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Version != ClaimsVersion {
		return nil, errors.New("unsupported token version")
	}
	if claims.UserID <= 0 || !claims.Role.valid() {
		return nil, errors.New("incomplete token")
	}
	return claims, nil
}
