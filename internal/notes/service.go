package notes

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"fsyportal/internal/account"
	"fsyportal/internal/apperr"
	"fsyportal/internal/auth"
)

// Store is the persistence used by Service.
type Store interface {
	ParticipantGroup(ctx context.Context, fsyID int64) (*auth.GroupRef, error)
	List(ctx context.Context, participantFsyID int64) ([]Note, error)
	Get(ctx context.Context, noteID int64) (*Note, error)
	Create(ctx context.Context, counselorFsyID int64, d Draft) (Note, error)
	Update(ctx context.Context, noteID int64, d Draft) error
	Delete(ctx context.Context, noteID int64) error
}

// Directory resolves the caller's own group.
type Directory interface {
	GroupOf(ctx context.Context, session auth.Session) (account.UserInfo, error)
}

// Service gates every note operation on the caller sharing the
// participant's company and group.
type Service struct {
	repo     Store
	dir      Directory
	validate *validator.Validate
	log      *zap.Logger
}

// NewService wires the notes service.
func NewService(repo Store, dir Directory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, dir: dir, validate: apperr.NewValidator(), log: log.Named("notes")}
}

// List returns the participant's notes.
func (s *Service) List(ctx context.Context, session auth.Session, participantFsyID int64) ([]Note, error) {
	if participantFsyID <= 0 {
		return nil, apperr.Validation("participantId", "Participant ID is required")
	}
	if _, err := s.authorize(ctx, session, participantFsyID, "Unauthorized to view notes for this participant"); err != nil {
		return nil, err
	}
	notes, err := s.repo.List(ctx, participantFsyID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Create adds a note authored by the caller.
func (s *Service) Create(ctx context.Context, session auth.Session, d Draft) (Note, error) {
	if d.ParticipantFsyID <= 0 {
		return Note{}, apperr.Validation("participant_fsy_id", "Missing required fields")
	}
	if err := s.check(d); err != nil {
		return Note{}, err
	}
	me, err := s.authorize(ctx, session, d.ParticipantFsyID, "Unauthorized to add notes for this participant")
	if err != nil {
		return Note{}, err
	}
	n, err := s.repo.Create(ctx, me.FsyID, d)
	if err != nil {
		return Note{}, err
	}
	s.log.Info("note created",
		zap.Int64("note_id", n.ID),
		zap.Int64("participant_fsy_id", n.ParticipantFsyID),
		zap.Int64("counselor_fsy_id", n.CounselorFsyID))
	return n, nil
}

// Update replaces a note's content.
func (s *Service) Update(ctx context.Context, session auth.Session, noteID int64, d Draft) error {
	if noteID <= 0 {
		return apperr.Validation("noteId", "Note ID is required")
	}
	if err := s.check(d); err != nil {
		return err
	}
	n, err := s.existing(ctx, noteID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, session, n.ParticipantFsyID, "Unauthorized to edit this note"); err != nil {
		return err
	}
	return s.repo.Update(ctx, noteID, d)
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, session auth.Session, noteID int64) error {
	if noteID <= 0 {
		return apperr.Validation("noteId", "Note ID is required")
	}
	n, err := s.existing(ctx, noteID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, session, n.ParticipantFsyID, "Unauthorized to delete this note"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, noteID); err != nil {
		return err
	}
	s.log.Info("note deleted", zap.Int64("note_id", noteID), zap.Int64("user_id", session.UserID))
	return nil
}

func (s *Service) check(d Draft) error {
	if err := s.validate.Struct(d); err != nil {
		return err
	}
	if !d.Category.Valid() {
		return apperr.Validation("category", "unknown category "+string(d.Category))
	}
	return nil
}

func (s *Service) existing(ctx context.Context, noteID int64) (*Note, error) {
	n, err := s.repo.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("Note not found")
	}
	return n, nil
}

// authorize returns the caller's group info when they may act on the
// participant's data.
func (s *Service) authorize(ctx context.Context, session auth.Session, participantFsyID int64, denied string) (account.UserInfo, error) {
	me, err := s.dir.GroupOf(ctx, session)
	if err != nil {
		return account.UserInfo{}, err
	}
	target, err := s.repo.ParticipantGroup(ctx, participantFsyID)
	if err != nil {
		return account.UserInfo{}, err
	}
	if target == nil {
		return account.UserInfo{}, apperr.NotFound("Participant not found")
	}
	if !auth.CanAccess(session.Role, me.Group(), *target) {
		s.log.Warn("note access denied",
			zap.Int64("user_id", session.UserID),
			zap.Int64("participant_fsy_id", participantFsyID))
		return account.UserInfo{}, apperr.Forbidden(denied)
	}
	return me, nil
}
