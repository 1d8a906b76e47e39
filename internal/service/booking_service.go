package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"coworking/internal/booking"
	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/metrics"
	"coworking/internal/models"
	"coworking/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type QuoteRequest struct {
	SpaceID   string                `json:"space_id" validate:"required_without=Category"`
	Category  string                `json:"category"`
	Duration  booking.DurationClass `json:"duration" validate:"required"`
	HourCount int                   `json:"hour_count" validate:"min=0,max=24"`
	StartHour int                   `json:"start_hour" validate:"min=0,max=23"`
	Resources []string              `json:"resources"`
}

type SubmitRequest struct {
	SpaceID    string                `json:"space_id" validate:"required"`
	Duration   booking.DurationClass `json:"duration" validate:"required,oneof=hourly daily monthly"`
	Date       string                `json:"date" validate:"required,datetime=2006-01-02"`
	StartHour  int                   `json:"start_hour"`
	HourCount  int                   `json:"hour_count"`
	Resources  []string              `json:"resources"`
	BookerName string                `json:"booker_name" validate:"required"`
}

func (r *SubmitRequest) normalize() {
	r.SpaceID = strings.TrimSpace(r.SpaceID)
	r.Date = strings.TrimSpace(r.Date)
	r.BookerName = strings.TrimSpace(r.BookerName)
	if r.Duration == "" {
		r.Duration = booking.Hourly
	}
	r.Resources = booking.DedupeIDs(r.Resources)
}

type BookingOptions struct {
	MaxBookingDays int
	CalendarDays   int
}

type BookingService struct {
	store      domain.ReservationStore
	spaces     map[string]models.Space
	spaceList  []models.Space
	resolver   *booking.Resolver
	calculator *pricing.Calculator
	eventBus   domain.EventPublisher
	opts       BookingOptions
	logger     *zerolog.Logger
}

func NewBookingService(
	store domain.ReservationStore,
	spaces []models.Space,
	resolver *booking.Resolver,
	calculator *pricing.Calculator,
	eventBus domain.EventPublisher,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = models.DefaultCalendarDays
	}

	list := append([]models.Space(nil), spaces...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].SortOrder < list[j].SortOrder })
	byID := make(map[string]models.Space, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}

	return &BookingService{
		store:      store,
		spaces:     byID,
		spaceList:  list,
		resolver:   resolver,
		calculator: calculator,
		eventBus:   eventBus,
		opts:       opts,
		logger:     logger,
	}
}

func (s *BookingService) Spaces() []models.Space {
	return append([]models.Space(nil), s.spaceList...)
}

func (s *BookingService) Space(id string) (models.Space, error) {
	space, ok := s.spaces[id]
	if !ok {
		return models.Space{}, fmt.Errorf("%w: %s", ErrSpaceNotFound, id)
	}
	return space, nil
}

func (s *BookingService) AddOns() []pricing.AddOn {
	return s.calculator.AddOns()
}

func (s *BookingService) Today() time.Time {
	return s.resolver.Today()
}

// ValidateDate rejects days before today and days beyond the booking horizon.
func (s *BookingService) ValidateDate(date time.Time) error {
	if s.resolver.IsPast(date) {
		return ErrPastDate
	}
	maxDate := s.resolver.Today().AddDate(0, 0, s.opts.MaxBookingDays)
	if booking.DayOf(date).After(maxDate) {
		return ErrDateTooFar
	}
	return nil
}

func (s *BookingService) Availability(ctx context.Context, spaceID string, date time.Time) (*booking.DayAvailability, error) {
	if _, err := s.Space(spaceID); err != nil {
		return nil, err
	}
	reservations, err := s.store.LoadReservations(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	day := s.resolver.Day(spaceID, date, reservations)
	return &day, nil
}

// Calendar returns availability for days consecutive dates starting at from.
// days <= 0 means the configured default.
func (s *BookingService) Calendar(ctx context.Context, spaceID string, from time.Time, days int) ([]booking.DayAvailability, error) {
	if days <= 0 {
		days = s.opts.CalendarDays
	}
	if days > models.MaxCalendarDays {
		return nil, invalid("days", "must be at most %d", models.MaxCalendarDays)
	}
	if _, err := s.Space(spaceID); err != nil {
		return nil, err
	}

	reservations, err := s.store.LoadReservations(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	start := booking.DayOf(from)
	out := make([]booking.DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, s.resolver.Day(spaceID, start.AddDate(0, 0, i), reservations))
	}
	return out, nil
}

// Quote prices a request. A space id selects the category of that space.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (pricing.Quote, error) {
	if req.Duration == "" {
		req.Duration = booking.Hourly
	}
	if req.Duration != booking.Hourly {
		req.StartHour, req.HourCount = 0, 0
	}
	if err := validateStruct(&req); err != nil {
		return pricing.Quote{}, err
	}

	category := req.Category
	if req.SpaceID != "" {
		space, err := s.Space(req.SpaceID)
		if err != nil {
			return pricing.Quote{}, err
		}
		category = space.Category
	}

	metrics.IncQuote(category, string(req.Duration))
	return s.calculator.Quote(category, req.Duration, req.HourCount, req.Resources, req.StartHour), nil
}

// Submit validates the request, prices it and appends the reservation.
// The store performs the final conflict check.
func (s *BookingService) Submit(ctx context.Context, req SubmitRequest) (*booking.Reservation, error) {
	req.normalize()
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	space, err := s.Space(req.SpaceID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, invalid("date", "must be a date in %s format", models.DateLayout)
	}
	if err := s.ValidateDate(date); err != nil {
		return nil, err
	}

	if err := validateBookerName(req.BookerName); err != nil {
		return nil, err
	}

	if req.Duration == booking.Hourly {
		if err := validateHourRange(req.StartHour, req.HourCount); err != nil {
			return nil, err
		}
	} else {
		req.StartHour, req.HourCount = 0, 0
	}

	existing, err := s.store.LoadReservations(ctx, space.ID)
	if err != nil {
		return nil, err
	}
	occupied := s.resolver.OccupiedHours(space.ID, date, existing)
	if occupied.Intersects(booking.RequestedHours(req.Duration, req.StartHour, req.HourCount)) {
		s.reject(ctx, space, req, booking.ErrSlotTaken)
		return nil, booking.ErrSlotTaken
	}

	reservation := &booking.Reservation{
		ID:         uuid.NewString(),
		SpaceID:    space.ID,
		SpaceName:  space.Name,
		Duration:   req.Duration,
		Date:       date,
		StartHour:  req.StartHour,
		HourCount:  req.HourCount,
		Resources:  req.Resources,
		TotalPrice: s.calculator.Price(space.Category, req.Duration, req.HourCount, req.Resources, req.StartHour),
		BookerName: req.BookerName,
	}

	if err := s.store.AppendReservation(ctx, reservation); err != nil {
		if errors.Is(err, booking.ErrSlotTaken) {
			s.reject(ctx, space, req, err)
		}
		return nil, err
	}

	metrics.ObserveReservation(space.Category, string(reservation.Duration), reservation.TotalPrice)
	s.publishEvent(ctx, events.EventReservationCreated, reservation, "", "")

	s.logger.Info().
		Str("reservation_id", reservation.ID).
		Str("space_id", reservation.SpaceID).
		Str("date", req.Date).
		Str("duration", string(reservation.Duration)).
		Str("total", pricing.Format(reservation.TotalPrice)).
		Msg("Reservation created")

	return reservation, nil
}

// validateHourRange bounds an hourly request to a start within the day and
// at most a day of hours.
func validateHourRange(startHour, hourCount int) error {
	if startHour < 0 || startHour >= booking.HoursPerDay {
		return invalid("start_hour", "must be between 0 and %d", booking.HoursPerDay-1)
	}
	if hourCount < 1 || hourCount > booking.HoursPerDay {
		return invalid("hour_count", "must be between 1 and %d", booking.HoursPerDay)
	}
	return nil
}

func validateBookerName(name string) error {
	if utf8.RuneCountInString(name) > models.MaxBookerNameLength {
		return invalid("booker_name", "must be at most %d characters", models.MaxBookerNameLength)
	}
	return nil
}

func (s *BookingService) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

func (s *BookingService) ListReservations(ctx context.Context, spaceID string) ([]booking.Reservation, error) {
	if _, err := s.Space(spaceID); err != nil {
		return nil, err
	}
	return s.store.LoadReservations(ctx, spaceID)
}

// ReservationsInRange returns all reservations with dates in [from, to].
func (s *BookingService) ReservationsInRange(ctx context.Context, from, to time.Time) ([]booking.Reservation, error) {
	if booking.DayOf(to).Before(booking.DayOf(from)) {
		return nil, invalid("to", "must not be before from")
	}
	if booking.DayOf(to).Sub(booking.DayOf(from)) > 366*24*time.Hour {
		return nil, invalid("to", "range must not exceed one year")
	}
	return s.store.GetReservationsByDateRange(ctx, from, to)
}

func (s *BookingService) reject(ctx context.Context, space models.Space, req SubmitRequest, reason error) {
	metrics.IncConflict()
	date, _ := time.Parse(models.DateLayout, req.Date)
	s.publishEvent(ctx, events.EventReservationRejected, &booking.Reservation{
		SpaceID:    space.ID,
		SpaceName:  space.Name,
		Duration:   req.Duration,
		Date:       date,
		StartHour:  req.StartHour,
		HourCount:  req.HourCount,
		Resources:  req.Resources,
		BookerName: req.BookerName,
	}, "", reason.Error())
}

func (s *BookingService) publishEvent(_ context.Context, eventType string, r *booking.Reservation, sessionID, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := reservationPayload(r, sessionID, reason)

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Str("reservation_id", r.ID).Msg("failed to publish event")
	}
}

func reservationPayload(r *booking.Reservation, sessionID, reason string) events.ReservationEventPayload {
	return events.ReservationEventPayload{
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		SpaceName:     r.SpaceName,
		Duration:      string(r.Duration),
		Date:          r.Date.Format(models.DateLayout),
		StartHour:     r.StartHour,
		HourCount:     r.HourCount,
		Resources:     r.Resources,
		TotalPrice:    r.TotalPrice,
		BookerName:    r.BookerName,
		SessionID:     sessionID,
		Reason:        reason,
		OccurredAt:    time.Now(),
	}
}
