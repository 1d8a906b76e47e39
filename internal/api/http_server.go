package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coworking/internal/booking"
	"coworking/internal/config"
	"coworking/internal/database"
	"coworking/internal/export"
	"coworking/internal/metrics"
	"coworking/internal/models"
	"coworking/internal/pricing"
	"coworking/internal/service"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is usable.
type Pinger interface {
	Ready(ctx context.Context) error
}

// HTTPServer exposes the booking JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	drafts   *service.DraftService
	exporter *export.Exporter
	ready    Pinger
	limiter  *rateLimiter
	server   *http.Server
	log      zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	bookings *service.BookingService,
	drafts *service.DraftService,
	exporter *export.Exporter,
	ready Pinger,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		drafts:   drafts,
		exporter: exporter,
		ready:    ready,
		limiter:  newRateLimiter(cfg.RateLimit),
		log:      zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	mux.HandleFunc("GET /api/v1/spaces", srv.handleSpaces)
	mux.HandleFunc("GET /api/v1/addons", srv.handleAddOns)
	mux.HandleFunc("GET /api/v1/spaces/{id}/availability", srv.handleAvailability)
	mux.HandleFunc("GET /api/v1/spaces/{id}/calendar", srv.handleCalendar)
	mux.HandleFunc("GET /api/v1/spaces/{id}/reservations", srv.handleSpaceReservations)
	mux.HandleFunc("POST /api/v1/quote", srv.handleQuote)
	mux.HandleFunc("POST /api/v1/reservations", srv.handleCreateReservation)
	mux.HandleFunc("GET /api/v1/reservations/{id}", srv.handleGetReservation)
	mux.HandleFunc("GET /api/v1/export", srv.handleExport)

	mux.HandleFunc("GET /api/v1/drafts/{session}", srv.handleGetDraft)
	mux.HandleFunc("PUT /api/v1/drafts/{session}", srv.handlePutDraft)
	mux.HandleFunc("DELETE /api/v1/drafts/{session}", srv.handleDeleteDraft)
	mux.HandleFunc("POST /api/v1/drafts/{session}/submit", srv.handleSubmitDraft)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(srv.rateLimitMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ready(ctx); err != nil {
			s.log.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleSpaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"spaces": s.bookings.Spaces()})
}

func (s *HTTPServer) handleAddOns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"addons": s.bookings.AddOns()})
}

type hourSlot struct {
	Hour int  `json:"hour"`
	Peak bool `json:"peak"`
}

type dayResponse struct {
	SpaceID   string     `json:"space_id"`
	Date      string     `json:"date"`
	Bookable  bool       `json:"bookable"`
	Occupied  []int      `json:"occupied"`
	Available []hourSlot `json:"available"`
}

func newDayResponse(day *booking.DayAvailability) dayResponse {
	slots := make([]hourSlot, 0, len(day.Available))
	for _, h := range day.Available {
		slots = append(slots, hourSlot{Hour: h, Peak: pricing.IsPeakHour(h)})
	}
	return dayResponse{
		SpaceID:   day.SpaceID,
		Date:      day.Date.Format(models.DateLayout),
		Bookable:  day.Bookable,
		Occupied:  day.Occupied.Hours(),
		Available: slots,
	}
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	day, err := s.bookings.Availability(r.Context(), r.PathValue("id"), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayResponse(day))
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from", s.bookings.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
	}

	calendar, err := s.bookings.Calendar(r.Context(), r.PathValue("id"), from, days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]dayResponse, 0, len(calendar))
	for i := range calendar {
		out = append(out, newDayResponse(&calendar[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"space_id": r.PathValue("id"), "days": out})
}

func (s *HTTPServer) handleSpaceReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.bookings.ListReservations(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": newReservationViews(reservations)})
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := s.bookings.Quote(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reservation, err := s.bookings.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReservationView(reservation))
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.bookings.GetReservation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReservationView(reservation))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is disabled")
		return
	}

	from, err := queryDate(r, "from", s.bookings.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryDate(r, "to", from.AddDate(0, 0, models.DefaultExportRangeDays-1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservations, err := s.bookings.ReservationsInRange(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	if err := s.exporter.Write(w, from, to, s.bookings.Spaces(), reservations); err != nil {
		s.log.Error().Err(err).Msg("failed to write export")
	}
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := s.drafts.View(r.Context(), r.PathValue("session"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.SessionID = r.PathValue("session")

	saved, err := s.drafts.Save(r.Context(), &draft)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.Clear(r.Context(), r.PathValue("session")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.drafts.Submit(r.Context(), r.PathValue("session"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReservationView(reservation))
}

type reservationView struct {
	ID         string   `json:"id"`
	SpaceID    string   `json:"space_id"`
	SpaceName  string   `json:"space_name"`
	Duration   string   `json:"duration"`
	Date       string   `json:"date"`
	StartHour  int      `json:"start_hour"`
	HourCount  int      `json:"hour_count"`
	Hours      []int    `json:"hours"`
	Resources  []string `json:"resources"`
	TotalPrice float64  `json:"total_price"`
	BookerName string   `json:"booker_name"`
	CreatedAt  string   `json:"created_at"`
}

func newReservationView(r *booking.Reservation) reservationView {
	resources := r.Resources
	if resources == nil {
		resources = []string{}
	}
	return reservationView{
		ID:         r.ID,
		SpaceID:    r.SpaceID,
		SpaceName:  r.SpaceName,
		Duration:   string(r.Duration),
		Date:       r.Date.Format(models.DateLayout),
		StartHour:  r.StartHour,
		HourCount:  r.HourCount,
		Hours:      r.Hours().Hours(),
		Resources:  resources,
		TotalPrice: pricing.Round(r.TotalPrice),
		BookerName: r.BookerName,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

func newReservationViews(in []booking.Reservation) []reservationView {
	out := make([]reservationView, 0, len(in))
	for i := range in {
		out = append(out, newReservationView(&in[i]))
	}
	return out
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, service.ErrPastDate), errors.Is(err, service.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSpaceNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !s.limiter.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, recorder.status)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func queryDate(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; expected YYYY-MM-DD", key)
	}
	return date, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
