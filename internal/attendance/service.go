package attendance

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"fsyportal/internal/apperr"
	"fsyportal/internal/metrics"
)

// Store is the persistence used by Service.
type Store interface {
	Roster(ctx context.Context, eventID, companyID, groupID int64) ([]Member, error)
	Submit(ctx context.Context, sub Submission) error
	Record(ctx context.Context, eventID, fsyID int64, status Status, userID int64) error
	Search(ctx context.Context, term string, eventID int64, limit int) ([]SearchResult, error)
}

// Service validates attendance requests before they reach the database.
type Service struct {
	repo        Store
	searchLimit int
	validate    *validator.Validate
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Store, searchLimit int, m *metrics.Metrics, log *zap.Logger) *Service {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		searchLimit: searchLimit,
		validate:    apperr.NewValidator(),
		metrics:     m,
		log:         log.Named("attendance"),
	}
}

// Roster returns a group's members for an event split into participants and
// counselors. eventID 0 yields every member with status Not Set.
func (s *Service) Roster(ctx context.Context, eventID, companyID, groupID int64) (Roster, error) {
	if eventID < 0 {
		return Roster{}, apperr.Validation("event_id", "Event ID is required")
	}
	if companyID <= 0 || groupID <= 0 {
		return Roster{}, apperr.Validation("company_id", "Event ID, Company ID, and Group ID are required")
	}
	members, err := s.repo.Roster(ctx, eventID, companyID, groupID)
	if err != nil {
		return Roster{}, err
	}
	for i := range members {
		if !members[i].AttendanceStatus.Valid() {
			members[i].AttendanceStatus = StatusNotSet
		}
	}
	return Split(members), nil
}

// Submit writes the whole roster's statuses in one call. Later marks for the
// same member replace earlier ones.
func (s *Service) Submit(ctx context.Context, sub Submission) (err error) {
	defer func() { s.metrics.Submit("batch", err) }()

	if err := s.validate.Struct(sub); err != nil {
		return err
	}
	for _, marks := range [][]Mark{sub.Participants, sub.Counselors} {
		for _, m := range marks {
			if !m.Status.Valid() {
				return apperr.Validation("attendance_status", "unknown attendance status "+string(m.Status))
			}
		}
	}
	sub.Participants, sub.Counselors = dedupe(sub.Participants, sub.Counselors)

	if err := s.repo.Submit(ctx, sub); err != nil {
		s.log.Error("attendance submission failed",
			zap.Int64("event_id", sub.EventID),
			zap.Int64("group_id", sub.GroupID),
			zap.Error(err))
		return err
	}
	s.log.Info("attendance submitted",
		zap.Int64("event_id", sub.EventID),
		zap.Int64("company_id", sub.CompanyID),
		zap.Int64("group_id", sub.GroupID),
		zap.Int64("user_id", sub.UserID),
		zap.Int("participants", len(sub.Participants)),
		zap.Int("counselors", len(sub.Counselors)))
	return nil
}

// Record sets one member's status, as done from the search or scan screens.
func (s *Service) Record(ctx context.Context, eventID, fsyID int64, raw string, userID int64) (err error) {
	defer func() { s.metrics.Submit("single", err) }()

	if eventID <= 0 || fsyID <= 0 || raw == "" {
		return apperr.Validation("event_id", "Missing required fields")
	}
	status, perr := ParseStatus(raw)
	if perr != nil {
		return apperr.Validation("attendance_status", perr.Error())
	}
	return s.repo.Record(ctx, eventID, fsyID, status, userID)
}

// Search looks up approved participants by name.
func (s *Service) Search(ctx context.Context, term string, eventID int64) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Validation("query", "Search query is required")
	}
	if eventID <= 0 {
		return nil, apperr.Validation("event_id", "Event ID is required")
	}
	results, err := s.repo.Search(ctx, term, eventID, s.searchLimit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// dedupe keeps the last mark per member across both lists. A member marked in
// both lists stays in the list of its last mark.
func dedupe(participants, counselors []Mark) ([]Mark, []Mark) {
	type slot struct {
		list int
		idx  int
	}
	last := make(map[int64]slot)
	for li, marks := range [][]Mark{participants, counselors} {
		for i, m := range marks {
			last[m.FsyID] = slot{li, i}
		}
	}
	out := [2][]Mark{{}, {}}
	for li, marks := range [][]Mark{participants, counselors} {
		for i, m := range marks {
			if last[m.FsyID] == (slot{li, i}) {
				out[li] = append(out[li], m)
			}
		}
	}
	return out[0], out[1]
}
