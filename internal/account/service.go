package account

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"fsyportal/internal/apperr"
	"fsyportal/internal/auth"
	"fsyportal/internal/cache"
)

// Store is the persistence used by Service.
type Store interface {
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserInfo(ctx context.Context, userID int64) (*UserInfo, error)
	MemberInfo(ctx context.Context, fsyID int64) (*MemberInfo, error)
	UpdateProfile(ctx context.Context, userID int64, email, phone, passwordHash *string) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID int64, email string, role auth.Role) (string, time.Time, error)
}

// LoginResult is a signed-in user with their session token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Service implements the account operations.
type Service struct {
	repo     Store
	tokens   TokenIssuer
	infos    cache.Cache[UserInfo]
	validate *validator.Validate
	log      *zap.Logger
}

// NewService wires the account service. infos may be nil.
func NewService(repo Store, tokens TokenIssuer, infos cache.Cache[UserInfo], log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		infos:    infos,
		validate: apperr.NewValidator(),
		log:      log.Named("account"),
	}
}

// Login checks email and password and issues a session token. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("email", "Missing email or password")
	}
	u, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("email", email))
		return LoginResult{}, apperr.Unauthenticated("Invalid email or password")
	}
	if u.Type != auth.RoleCounselor && u.Type != auth.RoleParticipant {
		return LoginResult{}, apperr.Forbidden("Account type cannot sign in")
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Email, u.Type)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: exp, User: *u}, nil
}

// UserInfo returns the user's group assignment, cached per user.
func (s *Service) UserInfo(ctx context.Context, userID int64) (UserInfo, error) {
	if userID <= 0 {
		return UserInfo{}, apperr.Validation("userId", "User ID is required")
	}
	key := strconv.FormatInt(userID, 10)
	if s.infos != nil {
		if info, ok := s.infos.Get(ctx, key); ok {
			return info, nil
		}
	}
	info, err := s.repo.UserInfo(ctx, userID)
	if err != nil {
		return UserInfo{}, err
	}
	if info == nil {
		return UserInfo{}, apperr.NotFound("User information not found")
	}
	if s.infos != nil {
		s.infos.Set(ctx, key, *info)
	}
	return *info, nil
}

// GroupOf returns the session holder's group for access checks.
func (s *Service) GroupOf(ctx context.Context, session auth.Session) (UserInfo, error) {
	info, err := s.UserInfo(ctx, session.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return UserInfo{}, apperr.NotFound("User not assigned to a company/group")
	}
	return info, err
}

// MemberInfo returns a registrant's profile.
func (s *Service) MemberInfo(ctx context.Context, fsyID int64) (MemberInfo, error) {
	if fsyID <= 0 {
		return MemberInfo{}, apperr.Validation("fsyId", "FSY ID is required")
	}
	m, err := s.repo.MemberInfo(ctx, fsyID)
	if err != nil {
		return MemberInfo{}, err
	}
	if m == nil {
		return MemberInfo{}, apperr.NotFound("Member not found")
	}
	return *m, nil
}

// UpdateProfile changes the caller's own email, phone or password. A zero
// UserID means the caller.
func (s *Service) UpdateProfile(ctx context.Context, session auth.Session, upd ProfileUpdate) error {
	if upd.UserID == 0 {
		upd.UserID = session.UserID
	}
	if err := s.validate.Struct(upd); err != nil {
		return err
	}
	if upd.UserID != session.UserID {
		return apperr.Forbidden("Cannot update another user's profile")
	}
	if upd.empty() {
		return apperr.Validation("email", "No fields to update")
	}

	var email, phone, hash *string
	if upd.Email != "" {
		email = &upd.Email
	}
	if upd.PhoneNumber != "" {
		phone = &upd.PhoneNumber
	}
	if upd.Password != "" {
		h, err := auth.HashPassword(upd.Password)
		if err != nil {
			return err
		}
		hash = &h
	}
	if err := s.repo.UpdateProfile(ctx, upd.UserID, email, phone, hash); err != nil {
		return err
	}
	if s.infos != nil {
		s.infos.Invalidate(ctx, strconv.FormatInt(upd.UserID, 10))
	}
	s.log.Info("profile updated",
		zap.Int64("user_id", upd.UserID),
		zap.Bool("email", email != nil),
		zap.Bool("phone", phone != nil),
		zap.Bool("password", hash != nil))
	return nil
}
