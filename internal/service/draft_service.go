package service

import (
	"context"
	"strings"
	"time"

	"coworking/internal/booking"
	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/models"
	"coworking/internal/pricing"

	"github.com/rs/zerolog"
)

// DraftView is a draft with its live quote and the hours still open on the
// chosen date. Without a date every hour is open.
type DraftView struct {
	Draft          *models.Draft `json:"draft"`
	Quote          pricing.Quote `json:"quote"`
	AvailableHours []int         `json:"available_hours"`
	DateBookable   bool          `json:"date_bookable"`
}

type DraftService struct {
	repo     domain.DraftRepository
	bookings *BookingService
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewDraftService(repo domain.DraftRepository, bookings *BookingService, eventBus domain.EventPublisher, logger *zerolog.Logger) *DraftService {
	return &DraftService{
		repo:     repo,
		bookings: bookings,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *DraftService) Get(ctx context.Context, sessionID string) (*models.Draft, error) {
	draft, err := s.repo.GetDraft(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get draft")
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

func (s *DraftService) View(ctx context.Context, sessionID string) (*DraftView, error) {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	quote, err := s.bookings.Quote(ctx, QuoteRequest{
		SpaceID:   draft.SpaceID,
		Duration:  draft.Duration,
		HourCount: draft.HourCount,
		StartHour: draft.StartHour,
		Resources: draft.Resources,
	})
	if err != nil {
		return nil, err
	}

	view := &DraftView{Draft: draft, Quote: quote}
	date, ok := draft.ParsedDate()
	if !ok {
		view.AvailableHours = booking.HourSet(0).Free()
		view.DateBookable = true
		return view, nil
	}

	day, err := s.bookings.Availability(ctx, draft.SpaceID, date)
	if err != nil {
		return nil, err
	}
	view.AvailableHours = day.Available
	view.DateBookable = day.Bookable
	return view, nil
}

// Save stores the draft after filling defaults. The space must exist and a
// date, when given, must parse.
func (s *DraftService) Save(ctx context.Context, draft *models.Draft) (*models.Draft, error) {
	draft.SessionID = strings.TrimSpace(draft.SessionID)
	if draft.SessionID == "" {
		return nil, invalid("session_id", "is required")
	}
	draft.Normalize()

	if !draft.Duration.Valid() {
		return nil, invalid("duration", "must be one of hourly daily monthly")
	}
	if draft.Duration == booking.Hourly {
		if err := validateHourRange(draft.StartHour, draft.HourCount); err != nil {
			return nil, err
		}
	}
	if err := validateBookerName(draft.BookerName); err != nil {
		return nil, err
	}
	if _, err := s.bookings.Space(draft.SpaceID); err != nil {
		return nil, err
	}
	if draft.Date != "" {
		if _, ok := draft.ParsedDate(); !ok {
			return nil, invalid("date", "must be a date in %s format", models.DateLayout)
		}
	}

	draft.UpdatedAt = time.Now()
	if err := s.repo.SetDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Clear(ctx context.Context, sessionID string) error {
	return s.repo.ClearDraft(ctx, sessionID)
}

// Submit turns the session's draft into a reservation and clears the draft.
func (s *DraftService) Submit(ctx context.Context, sessionID string) (*booking.Reservation, error) {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.bookings.Submit(ctx, SubmitRequest{
		SpaceID:    draft.SpaceID,
		Duration:   draft.Duration,
		Date:       draft.Date,
		StartHour:  draft.StartHour,
		HourCount:  draft.HourCount,
		Resources:  draft.Resources,
		BookerName: draft.BookerName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.ClearDraft(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear submitted draft")
	}

	if s.eventBus != nil {
		payload := reservationPayload(reservation, sessionID, "")
		if err := s.eventBus.PublishJSON(events.EventDraftSubmitted, payload); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to publish event")
		}
	}

	return reservation, nil
}
