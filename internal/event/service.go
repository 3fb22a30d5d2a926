package event

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"fsyportal/internal/apperr"
	"fsyportal/internal/cache"
)

// Store is the schedule source used by Service.
type Store interface {
	All(ctx context.Context) ([]Event, error)
	Current(ctx context.Context, id int64) (*Event, error)
	Next(ctx context.Context) (*Event, error)
	ByID(ctx context.Context, id int64) (*Event, error)
}

// Caches groups the caches the service reads through. Any may be nil.
type Caches struct {
	All     cache.Cache[[]Event]
	Current cache.Cache[Event]
	Next    cache.Cache[Event]
}

// Service answers schedule queries. The event list is cached without status;
// status is recomputed from the clock on every call.
type Service struct {
	repo   Store
	caches Caches
	clock  Clock
	log    *zap.Logger
}

// NewService wires a schedule service.
func NewService(repo Store, caches Caches, clock Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, caches: caches, clock: clock, log: log.Named("event")}
}

const (
	keyAll     = "all"
	keyCurrent = "0"
	keyNext    = "next"
)

// All returns every event annotated with its status at the venue's current
// time.
func (s *Service) All(ctx context.Context) ([]Event, error) {
	if s.caches.All != nil {
		if events, ok := s.caches.All.Get(ctx, keyAll); ok {
			return Annotate(events, s.clock.Now()), nil
		}
	}
	events, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	if s.caches.All != nil {
		s.caches.All.Set(ctx, keyAll, events)
	}
	return Annotate(events, s.clock.Now()), nil
}

// Current returns the event with id, or the running event when id is 0.
// Only the id-0 lookup is cached.
func (s *Service) Current(ctx context.Context, id int64) (Event, error) {
	if id < 0 {
		return Event{}, apperr.Validation("event_id", "event_id must not be negative")
	}
	useCache := id == 0 && s.caches.Current != nil
	if useCache {
		if e, ok := s.caches.Current.Get(ctx, keyCurrent); ok {
			return s.withStatus(e), nil
		}
	}
	e, err := s.repo.Current(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e == nil {
		return Event{}, apperr.NotFound("No current event found")
	}
	if useCache {
		s.caches.Current.Set(ctx, keyCurrent, *e)
	}
	return s.withStatus(*e), nil
}

// Next returns the next upcoming event. ok is false when nothing is left on
// the schedule.
func (s *Service) Next(ctx context.Context) (Event, bool, error) {
	if s.caches.Next != nil {
		if e, ok := s.caches.Next.Get(ctx, keyNext); ok {
			return s.withStatus(e), true, nil
		}
	}
	e, err := s.repo.Next(ctx)
	if err != nil {
		return Event{}, false, err
	}
	if e == nil {
		return Event{}, false, nil
	}
	if s.caches.Next != nil {
		s.caches.Next.Set(ctx, keyNext, *e)
	}
	return s.withStatus(*e), true, nil
}

// Get returns one event by id.
func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	if id <= 0 {
		return Event{}, apperr.Validation("id", "Event ID is required")
	}
	e, err := s.repo.ByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e == nil {
		return Event{}, apperr.NotFound("Event not found")
	}
	return s.withStatus(*e), nil
}

// Status classifies event id at the current venue time. Check-in screens call
// it before fetching a roster.
func (s *Service) Status(ctx context.Context, id int64) (Status, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Status, nil
}

// Invalidate drops every cached schedule entry.
func (s *Service) Invalidate(ctx context.Context) {
	if s.caches.All != nil {
		s.caches.All.Invalidate(ctx, keyAll)
	}
	if s.caches.Current != nil {
		s.caches.Current.Invalidate(ctx, keyCurrent)
	}
	if s.caches.Next != nil {
		s.caches.Next.Invalidate(ctx, keyNext)
	}
	s.log.Debug("schedule caches invalidated")
}

func (s *Service) withStatus(e Event) Event {
	e.Status = Classify(e.StartTime, e.EndTime, s.clock.Now())
	return e
}

// ParseID parses an event id parameter; empty means 0.
func ParseID(field, raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, apperr.Validation(field, field+" must be a non-negative integer")
	}
	return id, nil
}
