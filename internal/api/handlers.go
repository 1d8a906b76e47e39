package api

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"coworking/internal/booking"
	"coworking/internal/database"
	"coworking/internal/models"
	"coworking/internal/pricing"
	"coworking/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const bookingServiceName = "coworking.booking.v1.BookingService"

// BookingServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct values keyed like the HTTP JSON bodies.
type BookingServer interface {
	GetAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: getAvailabilityHandler},
		{MethodName: "Quote", Handler: quoteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coworking/booking/v1/booking.proto",
}

func RegisterBookingServer(s grpc.ServiceRegistrar, srv BookingServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

func getAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServer).GetAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + bookingServiceName + "/GetAvailability"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServer).GetAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func quoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServer).Quote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + bookingServiceName + "/Quote"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServer).Quote(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type BookingService struct {
	bookings *service.BookingService
}

func NewBookingService(bookings *service.BookingService) *BookingService {
	return &BookingService{bookings: bookings}
}

func (s *BookingService) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spaceID := stringField(req, "space_id")
	if spaceID == "" {
		return nil, status.Error(codes.InvalidArgument, "space_id is required")
	}

	dateStr := stringField(req, "date")
	if dateStr == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
	}

	day, err := s.bookings.Availability(ctx, spaceID, date)
	if err != nil {
		return nil, grpcError(err)
	}

	available := make([]any, 0, len(day.Available))
	for _, h := range day.Available {
		available = append(available, map[string]any{"hour": h, "peak": pricing.IsPeakHour(h)})
	}

	return newStruct(map[string]any{
		"space_id":  day.SpaceID,
		"date":      day.Date.Format(models.DateLayout),
		"bookable":  day.Bookable,
		"occupied":  intList(day.Occupied.Hours()),
		"available": available,
	})
}

func (s *BookingService) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var duration booking.DurationClass
	if raw := stringField(req, "duration"); raw != "" {
		d, err := booking.ParseDurationClass(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		duration = d
	}

	quote, err := s.bookings.Quote(ctx, service.QuoteRequest{
		SpaceID:   stringField(req, "space_id"),
		Category:  stringField(req, "category"),
		Duration:  duration,
		HourCount: intField(req, "hour_count"),
		StartHour: intField(req, "start_hour"),
		Resources: stringListField(req, "resources"),
	})
	if err != nil {
		return nil, grpcError(err)
	}

	addOns := make([]any, 0, len(quote.AddOns))
	for _, l := range quote.AddOns {
		addOns = append(addOns, map[string]any{"id": l.ID, "label": l.Label, "price": pricing.Round(l.Price)})
	}

	return newStruct(map[string]any{
		"category":   quote.Category,
		"duration":   string(quote.Duration),
		"base_rate":  quote.BaseRate,
		"hours":      quote.Hours,
		"peak_hours": quote.PeakHours,
		"base":       pricing.Round(quote.Base),
		"surcharge":  pricing.Round(quote.Surcharge),
		"addons":     addOns,
		"total":      pricing.Round(quote.Total),
	})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func grpcError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, service.ErrPastDate), errors.Is(err, service.ErrDateTooFar):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrSpaceNotFound), errors.Is(err, database.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

// intField reads a whole number; anything outside the int32 range or with a
// fraction comes back as -1 so request validation rejects it.
func intField(s *structpb.Struct, key string) int {
	v := s.GetFields()[key].GetNumberValue()
	if math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 || v != math.Trunc(v) {
		return -1
	}
	return int(v)
}

func stringListField(s *structpb.Struct, key string) []string {
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

func intList(in []int) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	return out
}
